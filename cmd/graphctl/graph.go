package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Shani815/vctalenthub-sub000/pkg/graphbuilder"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGraphCmd(opts *rootOptions) *cobra.Command {
	var (
		rootID      string
		depth       int
		maxNodes    int
		concurrency int
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print a member's network out to the given depth",
		Long: `Builds the network graph the same way the web client does: the root is
expanded first, then each level is fetched in turn until --depth is reached.
Browsing neighbors requires a premium account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if rootID == "" {
				rootID = opts.userID
			}
			if rootID == "" {
				return fmt.Errorf("--root is required when no --user is set")
			}

			logger := zap.NewNop()
			if verbose {
				if logger, err = zap.NewDevelopment(); err != nil {
					return err
				}
				defer func() { _ = logger.Sync() }()
			}

			b := graphbuilder.New(c,
				graphbuilder.WithMaxNodes(maxNodes),
				graphbuilder.WithConcurrency(concurrency),
				graphbuilder.WithLogger(logger),
			)
			ctx := cmd.Context()
			if err := b.Initialize(ctx, graphbuilder.Member{ID: rootID, DisplayName: rootID}); err != nil {
				return err
			}
			if err := b.ExpandToDepth(ctx, depth); err != nil {
				return err
			}

			snap := b.Snapshot()
			return opts.print(cmd.OutOrStdout(), snap, func(w io.Writer) {
				renderGraph(w, snap)
			})
		},
	}

	cmd.Flags().StringVar(&rootID, "root", "", "Member at the center of the graph (defaults to --user)")
	cmd.Flags().IntVar(&depth, "depth", 1, "Number of hops to expand")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 500, "Stop adding members past this many (0 for no limit)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Concurrent neighbor fetches per level")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log each fetch")
	return cmd
}

// renderGraph prints the visible nodes as a tree following first discovery
func renderGraph(w io.Writer, snap graphbuilder.Snapshot) {
	st := stylesFor(w)
	visible := make(map[string]bool, len(snap.Visible))
	children := make(map[string][]graphbuilder.Node)
	for _, n := range snap.Visible {
		visible[n.ID] = true
	}
	for _, n := range snap.Visible {
		if n.ID != snap.RootID && visible[n.ParentID] {
			children[n.ParentID] = append(children[n.ParentID], n)
		}
	}

	printed := make(map[string]bool, len(snap.Visible))
	var walk func(n graphbuilder.Node)
	walk = func(n graphbuilder.Node) {
		printed[n.ID] = true
		label := describeNode(n)
		if n.ID == snap.RootID {
			label = st.accent.Render(label)
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", n.Level), label)
		for _, child := range children[n.ID] {
			walk(child)
		}
	}
	for _, n := range snap.Visible {
		if n.ID == snap.RootID {
			walk(n)
			break
		}
	}
	// reached through a member other than the one that discovered it
	for _, n := range snap.Visible {
		if !printed[n.ID] {
			walk(n)
		}
	}

	summary := fmt.Sprintf("%d members, %d connections", len(snap.Nodes), len(snap.Edges))
	if snap.Truncated {
		summary += " (truncated)"
	}
	fmt.Fprintf(w, "\n%s\n", st.muted.Render(summary))
}

func describeNode(n graphbuilder.Node) string {
	label := n.ID
	if n.DisplayName != "" && n.DisplayName != n.ID {
		label = fmt.Sprintf("%s (%s)", n.DisplayName, n.ID)
	}
	if n.Role != "" {
		label += " [" + n.Role + "]"
	}
	if !n.Expanded {
		label += " +"
	}
	return label
}
