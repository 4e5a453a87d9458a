// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ikmak/mongo-bulkwrite/core/writeconcern"
	"github.com/ikmak/mongo-bulkwrite/event"
	"github.com/ikmak/mongo-bulkwrite/metrics"
	"github.com/ikmak/mongo-bulkwrite/mongo"
	"github.com/ikmak/mongo-bulkwrite/mongo/options"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// ErrNoModels is returned when the models file holds no write model.
var ErrNoModels = errors.New("no write models to execute")

type config struct {
	uri            string
	db             string
	coll           string
	file           string
	unordered      bool
	bypass         bool
	w              string
	maxBatchCount  int
	maxBatchLength int
	logLevel       string
	metricsAddr    string
	color          bool
}

// run executes the write models read from in and writes the report to out.
// Write errors are reported and then returned.
func run(ctx context.Context, cfg config, in io.Reader, out io.Writer, logger logrus.FieldLogger,
	extra ...options.Lister[options.ClientOptions]) error {

	models, err := readModels(in)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return ErrNoModels
	}

	collector := metrics.NewBulkCollector()
	st := &batchStats{}
	clientOpts := options.Client().
		ApplyURI(cfg.uri).
		SetAppName("bulkwrite").
		SetLogger(logger).
		SetBulkMonitor(event.Combine(collector.Monitor(), st.monitor()))
	if cfg.w != "" {
		wc, err := writeconcern.Parse(cfg.w, nil, 0)
		if err != nil {
			return errors.Wrap(err, "invalid write concern")
		}
		clientOpts.SetWriteConcern(wc)
	}

	if cfg.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		if err := reg.Register(collector); err != nil {
			return err
		}
		srv := serveMetrics(cfg.metricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client, err := mongo.Connect(ctx, append([]options.Lister[options.ClientOptions]{clientOpts}, extra...)...)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("disconnect failed")
		}
	}()

	bwOpts := options.BulkWrite().SetOrdered(!cfg.unordered)
	if cfg.bypass {
		bwOpts.SetBypassDocumentValidation(true)
	}
	if cfg.maxBatchCount > 0 {
		bwOpts.SetMaxBatchCount(cfg.maxBatchCount)
	}
	if cfg.maxBatchLength > 0 {
		bwOpts.SetMaxBatchLength(cfg.maxBatchLength)
	}

	logger.WithFields(logrus.Fields{
		"ns":      cfg.db + "." + cfg.coll,
		"models":  len(models),
		"ordered": !cfg.unordered,
	}).Info("starting bulk write")

	res, bwErr := client.Database(cfg.db).Collection(cfg.coll).BulkWrite(ctx, models, bwOpts)
	rep, err := newReport(res, bwErr)
	if err != nil {
		return err
	}
	if err := rep.write(out, st, cfg.color); err != nil {
		return err
	}
	if bwErr == mongo.ErrUnacknowledgedWrite {
		return nil
	}
	return bwErr
}

func serveMetrics(addr string, reg *prometheus.Registry, logger logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server failed")
		}
	}()
	logger.WithField("addr", addr).Info("serving metrics")
	return srv
}
