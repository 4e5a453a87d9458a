// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command bulkwrite executes a file of write models against a MongoDB
// server as one bulk write.
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfg config

	cmd := &cobra.Command{
		Use:   "bulkwrite",
		Short: "Execute a file of write models as a MongoDB bulk write",
		Long: `Execute a file of write models as a MongoDB bulk write.

The file holds one extended JSON model per line, for example:
  {"insertOne": {"document": {"_id": 1}}}
  {"updateOne": {"filter": {"_id": 1}, "update": {"$set": {"x": 1}}, "upsert": true}}
  {"deleteMany": {"filter": {"x": {"$gt": 5}}}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logrus.ParseLevel(cfg.logLevel)
			if err != nil {
				return errors.Wrap(err, "invalid log level")
			}
			logger := logrus.New()
			logger.Out = cmd.ErrOrStderr()
			logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
			logger.Level = level

			var in io.Reader = cmd.InOrStdin()
			if cfg.file != "-" {
				f, err := os.Open(cfg.file)
				if err != nil {
					return errors.Wrapf(err, "cannot open file %s", cfg.file)
				}
				defer f.Close()
				in = f
			}
			return run(cmd.Context(), cfg, in, cmd.OutOrStdout(), logger)
		},
	}
	cmd.SilenceUsage = true

	flags := cmd.Flags()
	flags.StringVar(&cfg.uri, "uri", "mongodb://localhost:27017", "MongoDB connection string")
	flags.StringVar(&cfg.db, "db", "test", "Database name")
	flags.StringVar(&cfg.coll, "coll", "", "Collection name")
	flags.StringVarP(&cfg.file, "file", "f", "-", "Write models file, - for stdin")
	flags.BoolVar(&cfg.unordered, "unordered", false, "Continue after write errors")
	flags.BoolVar(&cfg.bypass, "bypass-document-validation", false, "Skip document validation")
	flags.StringVar(&cfg.w, "w", "", "Write concern w value, a number or a tag such as majority")
	flags.IntVar(&cfg.maxBatchCount, "max-batch-count", 0, "Maximum number of requests per batch")
	flags.IntVar(&cfg.maxBatchLength, "max-batch-length", 0, "Maximum size of the requests of a batch in bytes")
	flags.StringVar(&cfg.logLevel, "log-level", "info", "Log level")
	flags.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flags.BoolVar(&cfg.color, "color", false, "Colorize the JSON report")
	_ = cmd.MarkFlagRequired("coll")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
