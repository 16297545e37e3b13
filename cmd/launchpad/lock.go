package main

import (
	"github.com/spf13/cobra"
)

func newPositionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List the wallet's Uniswap V3 positions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requiredString(cmd, "user")
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			positions, err := a.svc.Positions(a.ctx, user, network(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, positions)
		},
	}
	cmd.Flags().String("user", "", "user id")
	return cmd
}

func newLocksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locks",
		Short: "List the wallet's locked positions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requiredString(cmd, "user")
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			locks, err := a.svc.LockedPositions(a.ctx, user, network(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, locks)
		},
	}
	cmd.Flags().String("user", "", "user id")
	return cmd
}

func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock a position with the UNCX locker",
	}

	fee := &cobra.Command{
		Use:   "fee",
		Short: "Show the locker's flat fee",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			quote, err := a.svc.LockFee(a.ctx, network(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, quote)
		},
	}

	approve := &cobra.Command{
		Use:   "approve",
		Short: "Approve the locker for all of the wallet's positions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requiredString(cmd, "user")
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.svc.ApproveLocker(a.ctx, user, network(cmd))
			if printErr := printJSON(cmd, result); printErr != nil {
				return printErr
			}
			return err
		},
	}
	approve.Flags().String("user", "", "user id")

	create := &cobra.Command{
		Use:   "create",
		Short: "Lock an approved position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requiredString(cmd, "user")
			if err != nil {
				return err
			}
			position, err := requiredString(cmd, "position")
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.svc.LockPosition(a.ctx, user, network(cmd), position, days)
			if printErr := printJSON(cmd, result); printErr != nil {
				return printErr
			}
			return err
		},
	}
	create.Flags().String("user", "", "user id")
	create.Flags().String("position", "", "position NFT id")
	create.Flags().Int("days", 30, "lock duration in days")

	cmd.AddCommand(fee, approve, create)
	return cmd
}
