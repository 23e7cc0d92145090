// Command daosign 构建、签名并提交多签 DAO 动作。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/xdao/dao-sdk-go/types"
)

func main() {
	if err := mainE(); err != nil {
		os.Exit(1)
	}
}

func mainE() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		return err
	}
	return nil
}

// printError 输出错误；DAO 错误附带 Problem Details
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	daoErr, ok := types.AsDaoError(err)
	if !ok {
		return
	}
	body, mErr := json.MarshalIndent(daoErr.ToProblemDetails(), "", "  ")
	if mErr != nil {
		return
	}
	fmt.Fprintln(w, string(body))
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use: "daosign SUBCOMMAND",

		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		SilenceUsage:      true,
		SilenceErrors:     true,

		Short: "Off-chain multi-signature authorization for DAO actions",
		Long: `daosign builds the canonical digest of a DAO action, signs it with member keys,
checks signatures against the DAO's members and quorum, and submits the action.

Settings are read from the process environment and an optional dotenv file
(DAO_RPC_URL, DAO_CHAIN_ID, DAO_ADDRESS, DAO_MEMBERS, PRIVATE_KEY); flags win.
`,
	}
	g.register(rootCmd)

	rootCmd.AddCommand(
		newDataCmd(),
		newDigestCmd(g),
		newSignCmd(g),
		newRecoverCmd(),
		newConsumedCmd(g),
		newExecuteCmd(g),
		newWatchCmd(g),
	)
	return rootCmd
}
