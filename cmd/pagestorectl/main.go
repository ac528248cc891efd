// Command pagestorectl drives a pagestore file from the shell: create
// trees, insert and fetch entries, scan a tree in order, and verify its
// structural invariants.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dbcore/pagestore/internal/btree"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := dispatch(args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pagestorectl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `pagestorectl: inspect and mutate a pagestore file

Usage:
  pagestorectl create   -db FILE -tree NAME
  pagestorectl insert   -db FILE -tree NAME -key N -value TEXT [-hex]
  pagestorectl get      -db FILE -tree NAME -key N [-hex]
  pagestorectl scan     -db FILE -tree NAME [-reverse] [-hex]
  pagestorectl verify   -db FILE [-tree NAME]
  pagestorectl ls       -db FILE

-hex treats -value (on insert) or displayed values (on get/scan) as hex
rather than UTF-8 text.
`)
}

func dispatch(cmd string, rest []string) error {
	switch cmd {
	case "create":
		return runCreate(rest)
	case "insert":
		return runInsert(rest)
	case "get":
		return runGet(rest)
	case "scan":
		return runScan(rest)
	case "verify":
		return runVerify(rest)
	case "ls":
		return runList(rest)
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func openDB(fs *flag.FlagSet) (*btree.BTree, string, error) {
	dbPath := fs.Lookup("db").Value.String()
	if dbPath == "" {
		return nil, "", fmt.Errorf("-db is required")
	}
	tree, err := btree.Open(dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("open %q: %w", dbPath, err)
	}
	return tree, dbPath, nil
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	fs.String("db", "", "path to the pagestore file")
	treeName := fs.String("tree", "", "name of the tree to create")
	fs.Parse(args)

	if *treeName == "" {
		return fmt.Errorf("-tree is required")
	}
	tree, _, err := openDB(fs)
	if err != nil {
		return err
	}
	defer tree.Close()

	return tree.CreateTree(*treeName)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	fs.String("db", "", "path to the pagestore file")
	fs.Parse(args)

	tree, _, err := openDB(fs)
	if err != nil {
		return err
	}
	defer tree.Close()

	names, err := tree.ListTreeNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runInsert(args []string) error {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	fs.String("db", "", "path to the pagestore file")
	treeName := fs.String("tree", "", "tree to insert into")
	key := fs.Uint64("key", 0, "key to insert")
	value := fs.String("value", "", "value to insert")
	asHex := fs.Bool("hex", false, "interpret -value as hex rather than text")
	fs.Parse(args)

	if *treeName == "" {
		return fmt.Errorf("-tree is required")
	}
	payload, err := decodeValue(*value, *asHex)
	if err != nil {
		return err
	}

	tree, _, err := openDB(fs)
	if err != nil {
		return err
	}
	defer tree.Close()

	cur, ok, err := tree.OpenCursorReadWrite(*treeName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tree %q does not exist", *treeName)
	}
	defer cur.Close()

	return cur.Insert(*key, payload)
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	fs.String("db", "", "path to the pagestore file")
	treeName := fs.String("tree", "", "tree to read from")
	key := fs.Uint64("key", 0, "key to fetch")
	asHex := fs.Bool("hex", false, "print the value as hex rather than text")
	fs.Parse(args)

	if *treeName == "" {
		return fmt.Errorf("-tree is required")
	}

	tree, _, err := openDB(fs)
	if err != nil {
		return err
	}
	defer tree.Close()

	cur, ok, err := tree.OpenCursorReadonly(*treeName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tree %q does not exist", *treeName)
	}
	defer cur.Close()

	if err := cur.Find(*key); err != nil {
		return err
	}
	entry, ok, err := cur.GetEntry()
	if err != nil {
		return err
	}
	if !ok || entry.Key() != *key {
		return fmt.Errorf("key %d not found", *key)
	}
	value, err := io.ReadAll(entry)
	if err != nil {
		return err
	}
	printValue(value, *asHex)
	return nil
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	fs.String("db", "", "path to the pagestore file")
	treeName := fs.String("tree", "", "tree to scan")
	reverse := fs.Bool("reverse", false, "scan in descending key order")
	asHex := fs.Bool("hex", false, "print values as hex rather than text")
	fs.Parse(args)

	if *treeName == "" {
		return fmt.Errorf("-tree is required")
	}

	tree, _, err := openDB(fs)
	if err != nil {
		return err
	}
	defer tree.Close()

	cur, ok, err := tree.OpenCursorReadonly(*treeName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tree %q does not exist", *treeName)
	}
	defer cur.Close()

	if *reverse {
		err = cur.Last()
	} else {
		err = cur.First()
	}
	if err != nil {
		return err
	}

	for cur.Positioned() {
		entry, ok, err := cur.GetEntry()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		value, err := io.ReadAll(entry)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t", entry.Key())
		printValue(value, *asHex)

		if *reverse {
			err = cur.Prev()
		} else {
			err = cur.Next()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	fs.String("db", "", "path to the pagestore file")
	treeName := fs.String("tree", "", "tree to verify (all trees if omitted)")
	fs.Parse(args)

	tree, dbPath, err := openDB(fs)
	if err != nil {
		return err
	}
	defer tree.Close()

	if *treeName != "" {
		if err := tree.Verify(*treeName); err != nil {
			return err
		}
		fmt.Printf("%s: tree %q ok\n", dbPath, *treeName)
		return nil
	}

	if err := tree.VerifyAll(); err != nil {
		return err
	}
	fmt.Printf("%s: all trees ok\n", dbPath)
	return nil
}

func decodeValue(s string, asHex bool) ([]byte, error) {
	if asHex {
		return hex.DecodeString(s)
	}
	return []byte(s), nil
}

func printValue(value []byte, asHex bool) {
	if asHex {
		fmt.Println(hex.EncodeToString(value))
		return
	}
	fmt.Println(string(value))
}
