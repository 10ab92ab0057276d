package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *EventID
		wantErr bool
	}{
		{name: "number", body: `{"id": 42}`, want: idPtr(42)},
		{name: "numeric string", body: `{"id": "7"}`, want: idPtr(7)},
		{name: "null", body: `{"id": null}`, want: nil},
		{name: "absent", body: `{}`, want: nil},
		{name: "word", body: `{"id": "seven"}`, wantErr: true},
		{name: "fraction", body: `{"id": 1.5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input UpdateInput
			err := json.Unmarshal([]byte(tt.body), &input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, input.ID)
		})
	}
}

func TestTextUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *Text
		wantErr bool
	}{
		{name: "string", body: `{"title": "Standup"}`, want: TextPtr("Standup")},
		{name: "empty string", body: `{"title": ""}`, want: TextPtr("")},
		{name: "integer", body: `{"title": 123}`, want: TextPtr("123")},
		{name: "decimal", body: `{"title": 1.50}`, want: TextPtr("1.50")},
		{name: "boolean", body: `{"title": true}`, want: TextPtr("true")},
		{name: "null", body: `{"title": null}`, want: nil},
		{name: "absent", body: `{}`, want: nil},
		{name: "object", body: `{"title": {"a": 1}}`, wantErr: true},
		{name: "array", body: `{"title": ["a"]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input CreateInput
			err := json.Unmarshal([]byte(tt.body), &input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, input.Title)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 12 ")
	require.NoError(t, err)
	require.Equal(t, int64(12), id)

	_, err = ParseID("")
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "missing", verr.Message)

	_, err = ParseID("abc")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidationErrorMessage(t *testing.T) {
	require.Equal(t, "invalid title: is required", ValidationError{Field: "title", Message: "is required"}.Error())
	require.Equal(t, "bad body", ValidationError{Message: "bad body"}.Error())
}

func TestNotificationTypeValid(t *testing.T) {
	require.True(t, NotificationAdd.Valid())
	require.True(t, NotificationEdit.Valid())
	require.True(t, NotificationDelete.Valid())
	require.False(t, NotificationType("rename").Valid())
}
