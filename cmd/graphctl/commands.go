package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Shani815/vctalenthub-sub000/pkg/auth"
	"github.com/Shani815/vctalenthub-sub000/pkg/client"

	"github.com/spf13/cobra"
)

func newConnectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "connect [member-id]",
		Short: "Send a connection request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			edge, err := c.RequestConnection(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), edge, func(w io.Writer) {
				st := stylesFor(w)
				fmt.Fprintf(w, "Requested connection %s to %s\n", st.accent.Render(edge.ID), edge.ToActorID)
			})
		},
	}
}

func newRespondCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "respond [edge-id] [connected|rejected]",
		Short: "Accept or decline a pending connection request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			edge, err := c.RespondToConnection(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), edge, func(w io.Writer) {
				st := stylesFor(w)
				fmt.Fprintf(w, "Connection %s is now %s\n", edge.ID, st.accent.Render(string(edge.Type)))
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [member-id]",
		Short: "Show the relationship with another member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			status, err := c.ConnectionStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), status, func(w io.Writer) {
				st := stylesFor(w)
				fmt.Fprintln(w, st.accent.Render(status.Status))
				if status.InitiatedBy != "" {
					fmt.Fprintln(w, st.muted.Render(fmt.Sprintf("initiated by %s (%s)", status.InitiatedBy, status.EdgeID)))
				}
			})
		},
	}
}

func newPendingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List connection requests waiting for you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			pending, err := c.PendingConnections(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), pending, func(w io.Writer) {
				rows := make([][]string, 0, len(pending))
				for _, p := range pending {
					rows = append(rows, []string{
						p.Edge.ID, p.Requester.ID, p.Requester.DisplayName, p.Edge.CreatedAt.Format(time.DateOnly),
					})
				}
				fmt.Fprintln(w, stylesFor(w).table([]string{"EDGE", "FROM", "NAME", "SENT"}, rows))
			})
		},
	}
}

func newIntroCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "intro [member-id]",
		Short: "Ask for an introduction to a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			req, created, err := c.RequestIntro(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), req, func(w io.Writer) {
				st := stylesFor(w)
				if created {
					fmt.Fprintf(w, "Requested introduction %s to %s\n", st.accent.Render(req.ID), req.TargetID)
					return
				}
				fmt.Fprintf(w, "Introduction %s to %s is already %s\n", req.ID, req.TargetID, st.warn.Render(string(req.Status)))
			})
		},
	}
}

func newIntrosCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intros",
		Short: "List introduction requests waiting for you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			pending, err := c.PendingIntros(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), pending, func(w io.Writer) {
				rows := make([][]string, 0, len(pending))
				for _, p := range pending {
					rows = append(rows, []string{p.ID, p.Requester.ID, p.Requester.DisplayName, string(p.Requester.Role)})
				}
				fmt.Fprintln(w, stylesFor(w).table([]string{"INTRO", "FROM", "NAME", "ROLE"}, rows))
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "respond [intro-id] [accepted|rejected]",
		Short: "Accept or decline an introduction request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			req, err := c.RespondToIntro(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), req, func(w io.Writer) {
				st := stylesFor(w)
				fmt.Fprintf(w, "Introduction %s is now %s\n", req.ID, st.accent.Render(string(req.Status)))
			})
		},
	})
	return cmd
}

func newQuotaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show your connection and application allowance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			q, err := c.Quota(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), q, func(w io.Writer) {
				renderQuota(w, q)
			})
		},
	}
}

func renderQuota(w io.Writer, q *client.Quota) {
	st := stylesFor(w)
	connections := st.label.Render("Connections:")
	if q.Connections.Unlimited {
		fmt.Fprintln(w, connections+"unlimited")
	} else {
		fmt.Fprintf(w, "%s%d of %d used this week, %d left\n",
			connections, q.Connections.Used, q.Connections.Limit, q.Connections.Remaining)
		if q.Connections.Remaining == 0 {
			fmt.Fprintln(w, strings.Repeat(" ", labelWidth)+
				st.warn.Render(fmt.Sprintf("resets in %d days", q.Connections.RetryAfterDays)))
		}
	}

	applications := st.label.Render("Applications:")
	if q.Applications.Unlimited {
		fmt.Fprintln(w, applications+"unlimited")
		return
	}
	fmt.Fprintf(w, "%s%d of %d used, %d left\n",
		applications, q.Applications.Used, q.Applications.Limit, q.Applications.Remaining)
}

func newApplyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "can-apply",
		Short: "Check whether you may submit another job application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			check, err := c.CheckApplication(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), check, func(w io.Writer) {
				switch {
				case check.Unlimited:
					fmt.Fprintln(w, "allowed (unlimited)")
				case check.Remaining != nil:
					fmt.Fprintf(w, "allowed (%d remaining)\n", *check.Remaining)
				default:
					fmt.Fprintln(w, "allowed")
				}
			})
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development token for --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.userID == "" {
				return fmt.Errorf("--user is required")
			}
			gen, err := auth.NewJWTGenerator(opts.secret, opts.issuer, nil, ttl)
			if err != nil {
				return err
			}
			token, err := gen.GenerateToken(opts.userID, "", nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
