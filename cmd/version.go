////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// SEMVER is the release version
const SEMVER = "1.0.0"

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion() {
	fmt.Printf("Elixxir Secret Santa v%s\n\n", SEMVER)
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Printf("Dependencies:\n\n")
		for _, dep := range info.Deps {
			fmt.Printf("%s %s\n", dep.Path, dep.Version)
		}
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Elixxir Secret Santa",
	Long: `Print the version number of Elixxir Secret Santa. This also prints
the versions of all of its dependencies.`,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}
