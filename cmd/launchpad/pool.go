package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"launchpad/internal/model"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Create Uniswap V3 pools with full-range liquidity",
	}

	prepare := &cobra.Command{
		Use:   "prepare",
		Short: "Quote pool creation costs without sending anything",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runPool(cmd, false) },
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Quote, then create the pool and add liquidity",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runPool(cmd, true) },
	}
	for _, c := range []*cobra.Command{prepare, create} {
		c.Flags().String("user", "", "user id owning the wallet")
		c.Flags().String("token", "", "deployed token address")
		c.Flags().String("token-amount", "", "token amount to add")
		c.Flags().String("native-amount", "", "native currency amount to add")
	}
	create.Flags().Bool("yes", false, "confirm the quote and send")

	history := &cobra.Command{
		Use:   "history",
		Short: "List prepared and executed pool creations",
		RunE:  runPoolHistory,
	}
	history.Flags().String("user", "", "user id")

	cmd.AddCommand(prepare, create, history)
	return cmd
}

func runPool(cmd *cobra.Command, execute bool) error {
	req, err := poolRequest(cmd)
	if err != nil {
		return err
	}
	if execute {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("pool create sends transactions, pass --yes to confirm")
		}
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	prepared, err := a.svc.PreparePool(a.ctx, req)
	if err != nil {
		return err
	}
	if !execute {
		return printJSON(cmd, prepared)
	}

	result, err := a.svc.ExecutePool(a.ctx, req.UserID)
	if err != nil {
		return err
	}
	if err := printJSON(cmd, result); err != nil {
		return err
	}
	if result.Status == model.StatusFailed {
		return fmt.Errorf("pool creation failed: %s", result.Error)
	}
	return nil
}

func poolRequest(cmd *cobra.Command) (model.PoolCreationRequest, error) {
	user, err := requiredString(cmd, "user")
	if err != nil {
		return model.PoolCreationRequest{}, err
	}
	token, err := requiredString(cmd, "token")
	if err != nil {
		return model.PoolCreationRequest{}, err
	}
	amounts := make([]decimal.Decimal, 2)
	for i, name := range []string{"token-amount", "native-amount"} {
		raw, err := requiredString(cmd, name)
		if err != nil {
			return model.PoolCreationRequest{}, err
		}
		if amounts[i], err = decimal.NewFromString(raw); err != nil {
			return model.PoolCreationRequest{}, fmt.Errorf("--%s: %w", name, err)
		}
	}
	return model.PoolCreationRequest{
		UserID:       user,
		TokenAddress: token,
		Network:      network(cmd),
		TokenAmount:  amounts[0],
		NativeAmount: amounts[1],
	}, nil
}

func runPoolHistory(cmd *cobra.Command, _ []string) error {
	user, err := requiredString(cmd, "user")
	if err != nil {
		return err
	}
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	records, err := a.svc.PoolHistory(a.ctx, user)
	if err != nil {
		return err
	}
	return printJSON(cmd, records)
}
