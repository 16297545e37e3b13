package main

import (
	"github.com/spf13/cobra"
)

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage user signing wallets",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Generate a wallet for the user unless one exists",
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

			wallet, _, err := a.svc.CreateWallet(a.ctx, user)
			if err != nil {
				return err
			}
			return printJSON(cmd, wallet)
		},
	}

	importKey := &cobra.Command{
		Use:   "import",
		Short: "Store a private key as the user's wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requiredString(cmd, "user")
			if err != nil {
				return err
			}
			key, err := requiredString(cmd, "key")
			if err != nil {
				return err
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			wallet, err := a.svc.ImportWallet(a.ctx, user, key)
			if err != nil {
				return err
			}
			return printJSON(cmd, wallet)
		},
	}
	importKey.Flags().String("key", "", "hex private key")

	balance := &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet's native balance",
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

			b, err := a.svc.Balance(a.ctx, user, network(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd, b)
		},
	}

	for _, c := range []*cobra.Command{create, importKey, balance} {
		c.Flags().String("user", "", "user id")
	}
	cmd.AddCommand(create, importKey, balance)
	return cmd
}

func newRenounceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renounce",
		Short: "Renounce ownership of a token contract",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requiredString(cmd, "user")
			if err != nil {
				return err
			}
			contract, err := requiredString(cmd, "contract")
			if err != nil {
				return err
			}
			check, _ := cmd.Flags().GetBool("check")

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if check {
				info, err := a.svc.Ownership(a.ctx, user, network(cmd), contract)
				if err != nil {
					return err
				}
				return printJSON(cmd, info)
			}
			result, err := a.svc.RenounceOwnership(a.ctx, user, network(cmd), contract)
			if printErr := printJSON(cmd, result); printErr != nil {
				return printErr
			}
			return err
		},
	}
	cmd.Flags().String("user", "", "user id")
	cmd.Flags().String("contract", "", "token contract address")
	cmd.Flags().Bool("check", false, "only show the current owner")
	return cmd
}

func newTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect sent transactions",
	}
	status := &cobra.Command{
		Use:   "status <hash>",
		Short: "Recheck the receipt of a pending transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.svc.TxStatus(a.ctx, network(cmd), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
	cmd.AddCommand(status)
	return cmd
}

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "List the user's recorded token deployments",
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

			tokens, err := a.svc.Tokens(a.ctx, user)
			if err != nil {
				return err
			}
			return printJSON(cmd, tokens)
		},
	}
	cmd.Flags().String("user", "", "user id")
	return cmd
}
