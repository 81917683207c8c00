//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/weaviate/quiver/snapshot"
)

var logger *logrus.Logger

func main() {
	app := &cli.App{
		Name:  "quiver",
		Usage: "inspect and verify quiver graph snapshot files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logger = logrus.New()
			logger.SetLevel(logrus.WarnLevel)
			if c.Bool("verbose") {
				logger.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			inspectCommand(),
			verifyCommand(),
			historyCommand(),
			recordCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print the header and section counts of a snapshot file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one snapshot file")
			}
			path := c.Args().First()

			reader := snapshot.NewReader(logger, nil)
			_, info, err := reader.RestoreMapped(path)
			if err != nil {
				return err
			}

			multi := 0
			for _, m := range info.MultiEdge {
				if m {
					multi++
				}
			}

			fmt.Printf("file:      %s\n", path)
			fmt.Printf("version:   %d\n", info.Version)
			fmt.Printf("labels:    %d\n", info.Labels)
			fmt.Printf("relations: %d (%d holding multi-edges)\n", info.Relations, multi)
			fmt.Printf("nodes:     %d live, %d deleted\n", info.Nodes, info.DeletedNodes)
			fmt.Printf("edges:     %d live, %d deleted\n", info.Edges, info.DeletedEdges)
			fmt.Printf("checksum:  %08x\n", info.Checksum)
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "replay every given snapshot file and report the ones that fail",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Value: runtime.GOMAXPROCS(0),
				Usage: "number of files verified in parallel",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("expected at least one snapshot file")
			}

			eg := &errgroup.Group{}
			eg.SetLimit(c.Int("concurrency"))

			var lock sync.Mutex
			var result *multierror.Error

			for _, path := range c.Args().Slice() {
				path := path
				eg.Go(func() error {
					reader := snapshot.NewReader(logger, nil)
					_, info, err := reader.RestoreMapped(path)

					lock.Lock()
					defer lock.Unlock()
					if err != nil {
						result = multierror.Append(result, err)
						fmt.Printf("FAIL  %s\n", path)
						return nil
					}
					fmt.Printf("OK    %s  (%d nodes, %d edges)\n", path, info.Nodes, info.Edges)
					return nil
				})
			}

			if err := eg.Wait(); err != nil {
				return err
			}
			return result.ErrorOrNil()
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list the snapshots recorded in a metadata sidecar",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "meta",
				Usage:    "path to the metadata sidecar",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			store, err := snapshot.OpenStore(c.String("meta"))
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := store.GraphID()
			if err != nil {
				return err
			}
			records, err := store.Snapshots()
			if err != nil {
				return err
			}

			fmt.Printf("graph id: %s\n", id)
			for i, rec := range records {
				fmt.Printf("%3d  %s  nodes=%d(+%d deleted)  edges=%d(+%d deleted)  checksum=%08x\n",
					i, rec.CreatedAt.Format(time.RFC3339),
					rec.Nodes, rec.DeletedNodes, rec.Edges, rec.DeletedEdges, rec.Checksum)
			}
			return nil
		},
	}
}

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "verify a snapshot file and append it to the metadata sidecar",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "meta",
				Usage:    "path to the metadata sidecar",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one snapshot file")
			}

			reader := snapshot.NewReader(logger, nil)
			_, info, err := reader.RestoreMapped(c.Args().First())
			if err != nil {
				return err
			}

			store, err := snapshot.OpenStore(c.String("meta"))
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.RecordSnapshot(info); err != nil {
				return err
			}

			fmt.Printf("recorded snapshot %08x (%d nodes, %d edges)\n",
				info.Checksum, info.Nodes, info.Edges)
			return nil
		},
	}
}
