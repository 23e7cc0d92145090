package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/client"
	"github.com/xdao/dao-sdk-go/services"
	"github.com/xdao/dao-sdk-go/services/authorizer"
	"github.com/xdao/dao-sdk-go/signature"
	"github.com/xdao/dao-sdk-go/utils"
	"github.com/xdao/dao-sdk-go/wallet"
)

func newDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "data SIGNATURE [ARG...]",
		Short: "Encode call data: selector followed by ABI-encoded arguments",
		Example: `  daosign data "toggle()"
  daosign data "transfer(address,uint256)" 0x000000000000000000000000000000000000dEaD 100`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, argTypes, err := utils.ParseSignature(args[0])
			if err != nil {
				return err
			}
			values, err := utils.ParseArgs(argTypes, args[1:])
			if err != nil {
				return err
			}
			data, err := utils.CreateData(method, argTypes, values...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(data))
			return nil
		},
	}
}

func newDigestCmd(g *globalFlags) *cobra.Command {
	af := &actionFlags{}
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the digest members sign for an action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			a, err := af.action()
			if err != nil {
				return err
			}
			d, err := a.Digest(cfg.DAOAddress, cfg.ChainID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, d.Hex())
			if g.verbose {
				fmt.Fprintf(out, "timestamp %s\n", a.Timestamp)
			}
			return nil
		},
	}
	af.register(cmd)
	return cmd
}

func newSignCmd(g *globalFlags) *cobra.Command {
	af := &actionFlags{}
	var keys, keystores []string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an action's digest with one or more private keys",
		Long: `sign prints one signature per key, --key entries first, then --keystore
files, each in flag order. Keystore files are decrypted with DAO_KEYSTORE_PASSWORD.
Without either flag the PRIVATE_KEY setting is used. Pin --timestamp so every
member signs the same digest.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			a, err := af.action()
			if err != nil {
				return err
			}
			wallets, err := loadWallets(keys, keystores, cfg.KeystorePassword, cfg.PrivateKey)
			if err != nil {
				return err
			}
			d, err := a.Digest(cfg.DAOAddress, cfg.ChainID)
			if err != nil {
				return err
			}
			sigs, err := signature.Collect(cmd.Context(), d, wallet.AsSigners(wallets...), cfg.Concurrency)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, sig := range sigs.Hex() {
				if g.verbose {
					fmt.Fprintf(out, "%s %s\n", wallets[i].Address().Hex(), sig)
					continue
				}
				fmt.Fprintln(out, sig)
			}
			return nil
		},
	}
	af.register(cmd)
	cmd.Flags().StringArrayVar(&keys, "key", nil, "member private key (repeatable)")
	cmd.Flags().StringArrayVar(&keystores, "keystore", nil, "member v3 keystore file (repeatable)")
	return cmd
}

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover DIGEST SIGNATURE...",
		Short: "Recover the signer address of each signature over a digest",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := action.DigestFromHex(args[0])
			if err != nil {
				return err
			}
			sigs, err := signature.ParseSet(args[1:])
			if err != nil {
				return err
			}
			signers, err := sigs.Recover(d, signature.DefaultRecoverer)
			if err != nil {
				return err
			}
			for _, s := range signers {
				fmt.Fprintln(cmd.OutOrStdout(), s.Hex())
			}
			return nil
		},
	}
}

func newConsumedCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "consumed DIGEST...",
		Short: "Report whether each digest has already been executed by the DAO",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digests := make([]action.Digest, len(args))
			for i, raw := range args {
				d, err := action.DigestFromHex(raw)
				if err != nil {
					return err
				}
				digests[i] = d
			}

			cfg, err := g.config()
			if err != nil {
				return err
			}
			svc, closeFn, err := dial(cfg, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.ConsumedMany(cmd.Context(), digests)
			if err != nil {
				return err
			}
			if err := res.FirstError(); err != nil {
				return err
			}
			for i, d := range digests {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %t\n", d.Hex(), res.Results[i])
			}
			return nil
		},
	}
}

func newExecuteCmd(g *globalFlags) *cobra.Command {
	af := &actionFlags{}
	var (
		sigs         []string
		keys         []string
		keystores    []string
		skipPrecheck bool
	)
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Submit an action with collected signatures through the relayer account",
		Long: `execute submits the action to the DAO's execute function. Signatures come
from --sig (already collected) and/or --key and --keystore (signed locally). The relayer is
PRIVATE_KEY. Signatures are checked against on-chain members and quorum first
unless --skip-precheck is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := af.action()
			if err != nil {
				return err
			}
			if len(sigs) == 0 && len(keys) == 0 && len(keystores) == 0 {
				return fmt.Errorf("at least one --sig, --key or --keystore is required")
			}

			cfg, err := g.config()
			if err != nil {
				return err
			}
			svc, closeFn, err := dial(cfg, nil)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()

			set, err := signature.ParseSet(sigs)
			if err != nil {
				return err
			}
			if len(keys) > 0 || len(keystores) > 0 {
				wallets, err := loadWallets(keys, keystores, cfg.KeystorePassword, "")
				if err != nil {
					return err
				}
				collected, err := svc.Collect(ctx, &authorizer.CollectRequest{Action: a, Signers: wallet.AsSigners(wallets...)})
				if err != nil {
					return err
				}
				set = append(set, collected.Signatures...)
			}

			res, err := svc.Submit(ctx, &authorizer.SubmitRequest{Action: a, Signatures: set, SkipPrecheck: skipPrecheck})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "digest  %s\n", res.Digest.Hex())
			fmt.Fprintf(out, "tx      %s\n", res.Receipt.TxHash.Hex())
			fmt.Fprintf(out, "block   %d\n", res.Receipt.BlockNumber)
			signers := make([]string, len(res.Signers))
			for i, s := range res.Signers {
				signers[i] = s.Hex()
			}
			fmt.Fprintf(out, "signers %s\n", strings.Join(signers, ","))
			return nil
		},
	}
	af.register(cmd)
	cmd.Flags().StringArrayVar(&sigs, "sig", nil, "collected signature hex (repeatable)")
	cmd.Flags().StringArrayVar(&keys, "key", nil, "member private key to sign with (repeatable)")
	cmd.Flags().StringArrayVar(&keystores, "keystore", nil, "member v3 keystore file to sign with (repeatable)")
	cmd.Flags().BoolVar(&skipPrecheck, "skip-precheck", false, "submit without checking members and quorum locally")
	return cmd
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream Executed events from the DAO (WebSocket endpoint required)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			var collab *authorizer.RPCCollaborator
			_, closeFn, err := dial(cfg, &collab)
			if err != nil {
				return err
			}
			defer closeFn()

			events, err := collab.WatchExecuted(cmd.Context())
			if err != nil {
				return err
			}
			for ev := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s %s target=%s nonce=%s sigs=%d\n",
					ev.BlockNumber, ev.TxHash.Hex(), ev.Digest.Hex(), ev.Action.Target.Hex(), ev.Action.Nonce, len(ev.Signatures))
			}
			return nil
		},
	}
}

// dial 连接节点并创建授权服务；collabOut 非 nil 时返回底层协作方
func dial(cfg *services.Config, collabOut **authorizer.RPCCollaborator) (authorizer.Service, func(), error) {
	c, err := client.NewClient(cfg.ClientConfig())
	if err != nil {
		return nil, nil, err
	}
	collab, err := authorizer.NewRPCCollaborator(c, cfg, nil)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	if collabOut != nil {
		*collabOut = collab
	}
	closeFn := func() { _ = c.Close() }
	return authorizer.NewServiceWithConfig(collab, nil, cfg), closeFn, nil
}

// loadWallets 按 --key、--keystore 顺序加载钱包；两者都为空时使用 fallback 私钥
func loadWallets(keys, keystores []string, password, fallback string) ([]wallet.Wallet, error) {
	if len(keys) == 0 && len(keystores) == 0 && fallback != "" {
		keys = []string{fallback}
	}
	if len(keys) == 0 && len(keystores) == 0 {
		return nil, fmt.Errorf("no signing key: pass --key or --keystore, or set %s", services.EnvPrivateKey)
	}
	wallets := make([]wallet.Wallet, 0, len(keys)+len(keystores))
	for i, k := range keys {
		w, err := wallet.NewWalletFromPrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		wallets = append(wallets, w)
	}
	for _, path := range keystores {
		w, err := wallet.LoadKeystoreFile(path, password)
		if err != nil {
			return nil, fmt.Errorf("keystore %s: %w", path, err)
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}
