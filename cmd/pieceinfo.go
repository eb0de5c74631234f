package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var pieceinfoCmd = &cobra.Command{
	Use:   "pieceinfo <piece-number>",
	Short: "Look up aggregated piece, product, and vendor data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.PieceInfo == nil {
			return eris.New("piece info lookup is not configured (set RETURNS_PIECEINFO_BASE_URL)")
		}

		piece, err := env.PieceInfo.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(piece, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal piece info")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pieceinfoCmd)
}
