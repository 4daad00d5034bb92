package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/games/catalog"
	"github.com/radieske/game-provider-platform/internal/games/engine"
	"github.com/radieske/game-provider-platform/internal/games/sim"
	"github.com/radieske/game-provider-platform/internal/shared/config"
	"github.com/radieske/game-provider-platform/internal/shared/logger"
	"github.com/radieske/game-provider-platform/internal/shared/money"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		game   string
		spins  int
		bet    string
		rotate int64
		all    bool
	)
	cmd := &cobra.Command{
		Use:          "rtp-sim",
		Short:        "Estimate slot return-to-player with the production engines",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New("rtp-sim", cfg.Env, cfg.LogFile)
			if err != nil {
				return err
			}
			defer log.Sync()

			amount, err := money.Parse(bet)
			if err != nil {
				return fmt.Errorf("--bet: %w", err)
			}
			registry, err := catalog.Default()
			if err != nil {
				return err
			}

			games := []string{game}
			if all {
				games = games[:0]
				for _, e := range registry.List(engine.KindSlot) {
					games = append(games, e.ID())
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			runner := &sim.Runner{Log: log, Registry: registry}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, id := range games {
				rep, err := runner.Run(ctx, sim.Params{GameID: id, Spins: spins, Bet: amount, RotateEvery: rotate})
				if err != nil {
					log.Error("simulation failed", zap.String("game", id), zap.Error(err))
					return err
				}
				if err := enc.Encode(rep); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&game, "game", "fruit_classic", "slot game id")
	cmd.Flags().IntVar(&spins, "spins", 1_000_000, "number of spins")
	cmd.Flags().StringVar(&bet, "bet", "1", "bet per spin")
	cmd.Flags().Int64Var(&rotate, "rotate", sim.DefaultRotateEvery, "draws per server seed")
	cmd.Flags().BoolVar(&all, "all", false, "simulate every slot in the catalog")
	return cmd
}
