package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/calendify/server/internal/client"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type eventsOptions struct {
	serverURL string
	format    string
}

func newEventsCommand() *cobra.Command {
	opts := &eventsOptions{}

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Manage events on a running server",
		Long: `Create, list, update and delete events through the /api/events API of a
running server.

Examples:
  # List all events
  server events list

  # Show the activity feed
  server events notifications

  # Create an event
  server events create --title Standup --date 2024-01-01

  # Rename event 3
  server events update 3 --title Retro --date 2024-01-02

  # Delete event 3 on another server, printing raw JSON
  server events delete 3 --server http://calendar.internal:8080/api/events --format json`,
	}

	eventsCmd.PersistentFlags().StringVar(&opts.serverURL, "server", client.DefaultBaseURL, "events API URL")
	eventsCmd.PersistentFlags().StringVar(&opts.format, "format", "table", "output format (table, json, yaml)")

	eventsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all events",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := opts.client().GetEvents(cmd.Context())
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), resp, renderEvents)
			},
		},
		&cobra.Command{
			Use:   "notifications",
			Short: "Show the ten most recent notifications",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := opts.client().GetNotifications(cmd.Context())
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), resp, renderNotifications)
			},
		},
		newEventWriteCommand(opts, "create", "Create an event", cobra.NoArgs),
		newEventWriteCommand(opts, "update <id>", "Replace the title and date of an event", cobra.ExactArgs(1)),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete an event",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", args[0], err)
				}
				resp, err := opts.client().DeleteEvent(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), resp, renderMessage)
			},
		},
	)

	return eventsCmd
}

// newEventWriteCommand builds create (no args) and update (one id arg).
func newEventWriteCommand(opts *eventsOptions, use, short string, args cobra.PositionalArgs) *cobra.Command {
	var title, date string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			event := client.Event{Title: title, Date: date}
			c := opts.client()

			if len(args) == 0 {
				resp, err := c.CreateEvent(cmd.Context(), event)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), resp, renderCreated)
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			event.ID = id
			resp, err := c.UpdateEvent(cmd.Context(), event)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), resp, renderMessage)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "event title")
	cmd.Flags().StringVar(&date, "date", "", "event date, e.g. 2024-01-01")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (o *eventsOptions) client() *client.Client {
	return client.New(o.serverURL)
}

// render prints resp as indented JSON, YAML or through table, and turns a
// non-2xx status into an error carrying the server's message.
func (o *eventsOptions) render(out io.Writer, resp *client.Response, table func(io.Writer, *client.Response) error) error {
	if !resp.OK() {
		msg := resp.ErrorMessage()
		if msg == "" {
			msg = string(resp.Body)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}

	switch o.format {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, resp.Body, "", "  "); err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(out)
		return err
	case "yaml":
		var doc any
		if err := resp.Decode(&doc); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to format YAML: %w", err)
		}
		return enc.Close()
	case "table":
		return table(out, resp)
	default:
		return fmt.Errorf("unknown format %q (use table, json or yaml)", o.format)
	}
}

func renderEvents(out io.Writer, resp *client.Response) error {
	var items []client.Event
	if err := resp.Decode(&items); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "No events found.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE")
	for _, e := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, e.Date, e.Title)
	}
	return tw.Flush()
}

func renderNotifications(out io.Writer, resp *client.Response) error {
	var items []client.Notification
	if err := resp.Decode(&items); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "No notifications yet.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTYPE\tMESSAGE")
	for _, n := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.CreatedAt.Local().Format("2006-01-02 15:04:05"), n.Type, n.Message)
	}
	return tw.Flush()
}

func renderCreated(out io.Writer, resp *client.Response) error {
	var e client.Event
	if err := resp.Decode(&e); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	_, err := fmt.Fprintf(out, "Created event %d: %s (%s)\n", e.ID, e.Title, e.Date)
	return err
}

func renderMessage(out io.Writer, resp *client.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	_, err := fmt.Fprintln(out, body.Message)
	return err
}
