// Command mptadmin keeps versions of a Merkle prefix trie in a bbolt file and
// produces and checks deltas of it.
package main

import (
	"io"
	"os"

	"github.com/sfdc-hhildebrand/merkle-prefix-trie/mptadmin/lib"
	"github.com/urfave/cli"
	"go.dedis.ch/onet/v3/cfgpath"
	"go.dedis.ch/onet/v3/log"
)

// getDataPath is a function pointer so that tests can hook and modify this.
var getDataPath = cfgpath.GetDataPath

// stdin is read by the commands taking "-" as file name.
var stdin io.Reader = os.Stdin

var gitTag = "dev"

func createApp() *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = lib.Name
	cliApp.Usage = "Keep versions of a Merkle prefix trie and prove its content."
	cliApp.Version = gitTag
	cliApp.Commands = cmds // stored in "commands.go"
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
		cli.StringFlag{
			Name:   "config, c",
			EnvVar: "MPT_CONFIG",
			Value:  getDataPath(lib.Name),
			Usage:  "path to configuration-directory",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		cfg, err := lib.LoadConfig(c.String("config"))
		if err != nil {
			return err
		}
		debug := cfg.Debug
		if c.IsSet("debug") {
			debug = c.Int("debug")
		}
		log.SetDebugVisible(debug)
		return nil
	}
	return cliApp
}

func main() {
	err := createApp().Run(os.Args)
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}
