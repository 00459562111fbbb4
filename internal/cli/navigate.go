package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ecoai-civic/ecoai-client/internal/guard"
	"github.com/ecoai-civic/ecoai-client/internal/presence"
)

func newOpenCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Evaluate the route guard for a client view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, _, ok := guard.Match(guard.Routes, args[0])
			if !ok {
				return fmt.Errorf("no view at %s", args[0])
			}
			eval := rt.guard.Evaluate(cmd.Context(), guard.Navigation{
				Namespace: rt.store.Namespace(),
				Target:    args[0],
			}, route.Requirement, rt.store, rt.resolver)

			out := cmd.OutOrStdout()
			outcome := rt.policy.Decide(eval.Verdict)
			switch outcome.Kind {
			case guard.OutcomeRender:
				fmt.Fprintf(out, "%s: %s\n", eval.Verdict, route.View)
			case guard.OutcomeRedirect:
				fmt.Fprintf(out, "%s: redirect to %s\n", eval.Verdict, outcome.Location)
			default:
				fmt.Fprintf(out, "%s\n", eval.Verdict)
			}
			return nil
		},
	}
}

func newNavCommand(rt *runtime) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Show the navigation menu for the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			indicator := presence.NewIndicator(rt.store, rt.backends.Dispatcher, nil, rt.policy.LoginPath, nil)
			out := cmd.OutOrStdout()
			if !watch {
				return printNav(out, indicator.Snapshot(cmd.Context()))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			for p := range indicator.Watch(ctx) {
				if err := printNav(out, p); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep printing as the session changes")
	return cmd
}

func printNav(out io.Writer, p presence.Presence) error {
	enc := json.NewEncoder(out)
	return enc.Encode(struct {
		Presence presence.Presence   `json:"presence"`
		Menu     []presence.MenuItem `json:"menu"`
	}{p, presence.Menu(p)})
}
