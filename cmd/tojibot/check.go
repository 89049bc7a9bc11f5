package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/tojibot/internal/app"
)

func newCheckCmd(c *cli) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify storage connectivity and optionally the completion provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			built, err := app.Build(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer built.Cleanup()

			out := cmd.OutOrStdout()
			var failed []string
			report := func(name, backend string, err error) {
				if err != nil {
					failed = append(failed, name)
					fmt.Fprintf(out, "FAIL %-13s %s: %v\n", name, backend, err)
					return
				}
				fmt.Fprintf(out, "ok   %-13s %s\n", name, backend)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.StoreTimeout+c.cfg.LLMTimeout)
			defer cancel()

			n, err := built.Facts.Count(ctx)
			report("fact_store", fmt.Sprintf("%s (%d facts)", built.Facts.Backend(), n), err)
			report("memory_store", built.Memory.Backend(), built.Memory.Ping(ctx))

			llmDetail := built.LLM.Provider + " (" + built.LLM.Detail + ")"
			if probe {
				reply := built.Responder.Respond(ctx, "tojibot-check", "Say hi in three words.")
				var perr error
				if reply == c.cfg.Persona.FallbackReply {
					perr = errors.New("completion failed; see logs")
				}
				report("llm_provider", llmDetail, perr)
			} else {
				report("llm_provider", llmDetail, nil)
			}

			if len(failed) > 0 {
				return fmt.Errorf("checks failed: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", true, "send one test message through the full pipeline")
	return cmd
}
