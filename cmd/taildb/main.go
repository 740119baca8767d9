// taildb is a command line tool for inspecting and editing taildb files.
//
// Usage:
//
//	taildb -db <file> [-group prefix] put '<json>'...     # write documents
//	taildb -db <file> get <id> [rev]                       # latest or given revision
//	taildb -db <file> history <id>                         # every revision
//	taildb -db <file> [-group prefix] [-skip n] [-limit n] [-reverse] list
//	taildb -db <file> [-group prefix] keys                 # ids, one per line
//	taildb -db <file> [-group prefix] count
//	taildb -db <file> checksum
//	taildb -db <file> verify                               # decode every record
//	taildb -db <file> backup <out.zst>                     # compressed snapshot
//	taildb -db <file> restore <in.zst> [checksum]          # -db must not exist
//	taildb -db <file> push <name>                          # upload to object storage
//	taildb -db <file> pull <name>                          # download and restore
//
// Object storage is configured through TAILDB_S3_ENDPOINT, TAILDB_S3_BUCKET,
// TAILDB_S3_ACCESS, TAILDB_S3_SECRET, TAILDB_S3_REGION and
// TAILDB_S3_INSECURE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/jpl-au/taildb"
	"github.com/jpl-au/taildb/objstore"
	"github.com/tidwall/pretty"
)

type options struct {
	db      string
	group   string
	skip    int
	limit   int
	reverse bool
	color   bool
	verbose bool
}

func main() {
	var o options
	flag.StringVar(&o.db, "db", "", "database file")
	flag.StringVar(&o.group, "group", "", "restrict to ids with this prefix")
	flag.IntVar(&o.skip, "skip", 0, "documents to skip (list)")
	flag.IntVar(&o.limit, "limit", 0, "maximum documents (list, 0 = all)")
	flag.BoolVar(&o.reverse, "reverse", false, "iterate from the last key (list)")
	flag.BoolVar(&o.color, "color", false, "colorize JSON output")
	flag.BoolVar(&o.verbose, "v", false, "log debug output to stderr")
	flag.Parse()

	if o.db == "" || flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: taildb -db <file> [flags] <command> [args]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(context.Background(), o, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, args []string, w io.Writer) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	config := taildb.Config{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "restore":
		return restore(o, args, config, w)
	case "pull":
		return pull(ctx, o, args, config, w)
	}

	db, err := taildb.Open(o.db, config)
	if err != nil {
		return err
	}
	defer db.Close()

	store := &db.Store
	if o.group != "" {
		if store, err = db.Group(o.group, nil); err != nil {
			return err
		}
	}

	switch cmd {
	case "put":
		docs := make([]taildb.Document, 0, len(args))
		for _, arg := range args {
			var doc taildb.Document
			if err := json.Unmarshal([]byte(arg), &doc); err != nil {
				return fmt.Errorf("parse %q: %w", arg, err)
			}
			docs = append(docs, doc)
		}
		out, err := store.Put(docs...)
		if err != nil {
			return err
		}
		return emit(w, o, out...)

	case "get":
		if len(args) < 1 {
			return errors.New("get: missing id")
		}
		var doc taildb.Document
		if len(args) > 1 {
			rev, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("get: revision: %w", err)
			}
			doc, err = store.Read(args[0], rev)
			if err != nil {
				return err
			}
		} else if doc, err = store.FindOrFail(args[0]); err != nil {
			return err
		}
		return emit(w, o, doc)

	case "history":
		if len(args) < 1 {
			return errors.New("history: missing id")
		}
		docs, err := store.History(args[0])
		if err != nil {
			return err
		}
		return emit(w, o, docs...)

	case "list":
		for doc, err := range store.Iter(taildb.IterOptions{Skip: o.skip, Limit: o.limit, Reverse: o.reverse}) {
			if err != nil {
				return err
			}
			if err := emit(w, o, doc); err != nil {
				return err
			}
		}
		return nil

	case "keys":
		keys, err := store.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(w, k)
		}
		return nil

	case "count":
		n, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, n)
		return nil

	case "checksum":
		sum, err := db.Checksum()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, sum)
		return nil

	case "verify":
		n, err := db.Verify()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d records ok\n", n)
		return nil

	case "backup":
		if len(args) < 1 {
			return errors.New("backup: missing output file")
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		sum, err := db.Backup(f)
		if err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(w, sum)
		return nil

	case "push":
		if len(args) < 1 {
			return errors.New("push: missing object name")
		}
		client, err := objstore.New(ctx, s3Config())
		if err != nil {
			return err
		}
		sum, err := client.Push(ctx, db, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, sum)
		return nil
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func restore(o options, args []string, config taildb.Config, w io.Writer) error {
	if len(args) < 1 {
		return errors.New("restore: missing input file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	checksum := ""
	if len(args) > 1 {
		checksum = args[1]
	}
	db, err := taildb.Restore(f, o.db, checksum, config)
	if err != nil {
		return err
	}
	defer db.Close()
	return stats(w, db)
}

func pull(ctx context.Context, o options, args []string, config taildb.Config, w io.Writer) error {
	if len(args) < 1 {
		return errors.New("pull: missing object name")
	}
	client, err := objstore.New(ctx, s3Config())
	if err != nil {
		return err
	}
	db, err := client.Pull(ctx, args[0], o.db, config)
	if err != nil {
		return err
	}
	defer db.Close()
	return stats(w, db)
}

func stats(w io.Writer, db *taildb.DB) error {
	st, err := db.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "keys=%d records=%d size=%d\n", st.Keys, st.Records, st.Size)
	return nil
}

func s3Config() objstore.Config {
	insecure, _ := strconv.ParseBool(os.Getenv("TAILDB_S3_INSECURE"))
	return objstore.Config{
		Endpoint: os.Getenv("TAILDB_S3_ENDPOINT"),
		Bucket:   os.Getenv("TAILDB_S3_BUCKET"),
		Access:   os.Getenv("TAILDB_S3_ACCESS"),
		Secret:   os.Getenv("TAILDB_S3_SECRET"),
		Region:   os.Getenv("TAILDB_S3_REGION"),
		Insecure: insecure,
	}
}

// emit writes each document as indented JSON.
func emit(w io.Writer, o options, docs ...taildb.Document) error {
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		data = pretty.Pretty(data)
		if o.color {
			data = pretty.Color(data, nil)
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}
