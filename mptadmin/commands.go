package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"strings"

	mpt "github.com/sfdc-hhildebrand/merkle-prefix-trie"
	"github.com/sfdc-hhildebrand/merkle-prefix-trie/mptadmin/lib"
	"github.com/sfdc-hhildebrand/merkle-prefix-trie/store"
	"github.com/sfdc-hhildebrand/merkle-prefix-trie/trie"
	"github.com/urfave/cli"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"
)

var cmds = cli.Commands{
	{
		Name:      "set",
		Usage:     "set the value of a key and save a new version",
		ArgsUsage: "KEY VALUE",
		Action:    set,
	},
	{
		Name:      "get",
		Usage:     "print the value of a key in the latest version",
		ArgsUsage: "KEY",
		Action:    get,
	},
	{
		Name:      "del",
		Aliases:   []string{"delete"},
		Usage:     "delete a key and save a new version",
		ArgsUsage: "KEY",
		Action:    del,
	},
	{
		Name:   "root",
		Usage:  "print the commitment of the latest version",
		Action: root,
	},
	{
		Name:   "versions",
		Usage:  "list the commitments of all saved versions",
		Action: versions,
	},
	{
		Name:      "proof",
		Usage:     "print the hex-encoded proof for keys in the latest version",
		ArgsUsage: "KEY...",
		Action:    proof,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "since",
				Usage: "only send what a holder of the version with this commitment lacks",
			},
			cli.StringFlag{
				Name:  "out, o",
				Usage: "write to this file instead of the standard output",
			},
		},
	},
	{
		Name:   "changes",
		Usage:  "print the hex-encoded delta of what changed since a version",
		Action: changes,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "since",
				Usage: "commitment of the older version",
			},
			cli.StringFlag{
				Name:  "out, o",
				Usage: "write to this file instead of the standard output",
			},
		},
	},
	{
		Name:      "verify",
		Usage:     "check a hex-encoded delta against a commitment",
		ArgsUsage: "FILE|-",
		Action:    verify,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "root",
				Usage: "the trusted commitment, in hex",
			},
			cli.StringFlag{
				Name:  "key",
				Usage: "print the value the delta proves for this key",
			},
		},
	},
	{
		Name:   "dump",
		Usage:  "print all the keys and values of the latest version",
		Action: dump,
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "tree",
				Usage: "print the nodes of the trie instead",
			},
		},
	},
}

// openStore opens the store of the configuration directory given on the
// command line.
func openStore(c *cli.Context) (*store.Store, store.DB, error) {
	dir := c.GlobalString("config")
	cfg, err := lib.LoadConfig(dir)
	if err != nil {
		return nil, nil, err
	}
	return cfg.OpenStore(dir)
}

func set(c *cli.Context) error {
	if c.NArg() != 2 {
		return xerrors.New("please give KEY and VALUE")
	}
	return update(c, func(t *trie.Trie) bool {
		return t.Set([]byte(c.Args().Get(0)), []byte(c.Args().Get(1)))
	})
}

func del(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.New("please give KEY")
	}
	return update(c, func(t *trie.Trie) bool {
		return t.Delete([]byte(c.Args().First()))
	})
}

// update applies f to the latest version and saves the result if it
// changed. The commitment of the latest version is printed in any case.
func update(c *cli.Context, f func(*trie.Trie) bool) error {
	s, db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()

	t, err := s.LoadLatest()
	if err != nil {
		return xerrors.Errorf("loading latest version: %v", err)
	}
	if !f(t) {
		log.Lvl1("Nothing changed")
		fmt.Fprintf(c.App.Writer, "%x\n", t.Commitment())
		return nil
	}
	commitment, err := s.Save(t)
	if err != nil {
		return xerrors.Errorf("saving: %v", err)
	}
	fmt.Fprintf(c.App.Writer, "%x\n", commitment)
	return nil
}

func get(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.New("please give KEY")
	}
	t, err := loadLatest(c)
	if err != nil {
		return err
	}
	v, ok := t.Get([]byte(c.Args().First()))
	if !ok {
		return xerrors.Errorf("key %q not found", c.Args().First())
	}
	fmt.Fprintf(c.App.Writer, "%s\n", v)
	return nil
}

func root(c *cli.Context) error {
	t, err := loadLatest(c)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%x\n", t.Commitment())
	return nil
}

func versions(c *cli.Context) error {
	s, db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()

	all, err := s.Commitments()
	if err != nil {
		return err
	}
	latest, err := s.Latest()
	if err != nil {
		return err
	}
	for _, commitment := range all {
		mark := ""
		if bytes.Equal(commitment, latest) {
			mark = " (latest)"
		}
		fmt.Fprintf(c.App.Writer, "%x%s\n", commitment, mark)
	}
	return nil
}

func proof(c *cli.Context) error {
	if c.NArg() == 0 {
		return xerrors.New("please give at least one KEY")
	}
	var keys [][]byte
	for _, k := range c.Args() {
		keys = append(keys, []byte(k))
	}

	s, db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()
	t, err := s.LoadLatest()
	if err != nil {
		return err
	}

	var d *trie.Delta
	if since := c.String("since"); since != "" {
		base, err := loadVersion(s, since)
		if err != nil {
			return err
		}
		d = t.UpdatesSince(base, keys...)
	} else {
		d = t.Proof(keys...)
	}
	return writeDelta(c, d)
}

func changes(c *cli.Context) error {
	since := c.String("since")
	if since == "" {
		return xerrors.New("please give --since")
	}

	s, db, err := openStore(c)
	if err != nil {
		return err
	}
	defer db.Close()
	t, err := s.LoadLatest()
	if err != nil {
		return err
	}
	base, err := loadVersion(s, since)
	if err != nil {
		return err
	}
	return writeDelta(c, t.ChangesSince(base))
}

func verify(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.New("please give FILE or - for the standard input")
	}
	commitment, err := hex.DecodeString(c.String("root"))
	if err != nil || len(commitment) == 0 {
		return xerrors.Errorf("invalid --root: %q", c.String("root"))
	}

	var in []byte
	if c.Args().First() == "-" {
		in, err = ioutil.ReadAll(stdin)
	} else {
		in, err = ioutil.ReadFile(c.Args().First())
	}
	if err != nil {
		return xerrors.Errorf("reading delta: %v", err)
	}
	buf, err := hex.DecodeString(strings.TrimSpace(string(in)))
	if err != nil {
		return xerrors.Errorf("delta is not hex: %v", err)
	}

	cfg, err := lib.LoadConfig(c.GlobalString("config"))
	if err != nil {
		return err
	}
	suite, err := mpt.FindSuite(cfg.Suite)
	if err != nil {
		return err
	}
	d, err := trie.DecodeDelta(suite, buf)
	if err != nil {
		return err
	}
	if err := d.Verify(commitment); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "OK")

	if key := c.String("key"); key != "" {
		v, ok, err := d.Get([]byte(key))
		if err != nil {
			return xerrors.Errorf("key %q: %w", key, err)
		}
		if !ok {
			fmt.Fprintf(c.App.Writer, "%q is absent\n", key)
			return nil
		}
		fmt.Fprintf(c.App.Writer, "%q = %q\n", key, v)
	}
	return nil
}

func dump(c *cli.Context) error {
	t, err := loadLatest(c)
	if err != nil {
		return err
	}
	if c.Bool("tree") {
		fmt.Fprint(c.App.Writer, t.String())
		return nil
	}
	return t.ForEach(func(k, v []byte) error {
		_, err := fmt.Fprintf(c.App.Writer, "%q = %q\n", k, v)
		return err
	})
}

func loadLatest(c *cli.Context) (*trie.Trie, error) {
	s, db, err := openStore(c)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return s.LoadLatest()
}

func loadVersion(s *store.Store, commitment string) (*trie.Trie, error) {
	buf, err := hex.DecodeString(commitment)
	if err != nil {
		return nil, xerrors.Errorf("invalid commitment %q: %v", commitment, err)
	}
	return s.Load(buf)
}

func writeDelta(c *cli.Context, d *trie.Delta) error {
	buf, err := d.Encode()
	if err != nil {
		return err
	}
	out := hex.EncodeToString(buf) + "\n"
	if fn := c.String("out"); fn != "" {
		return ioutil.WriteFile(fn, []byte(out), 0600)
	}
	_, err = fmt.Fprint(c.App.Writer, out)
	return err
}
