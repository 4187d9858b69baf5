// Package orchestrate implements the top-level Run entry point of
// spec.md §4.6 (C6): it wires the record extractor (C1), the optional
// external-schema resolver (C2), schema inference (C3), and one
// materialization sink (C5) into a single synchronous pull/push fold,
// and reports progress through a structured logger.
//
// The shape — a Config struct assembled by the caller, a single Run
// entry point, and *logrus.Logger-driven structured progress logging —
// is grounded on mdzesseis-log_capturer_go's sinks package, where every
// sink constructor takes a *logrus.Logger and reports batch/flush events
// via logger.WithFields(logrus.Fields{...}).Info/Error(...).
package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xmletl/core/inference"
	"github.com/xmletl/core/opener"
	"github.com/xmletl/core/schemaresolver"
	"github.com/xmletl/core/sink"
	"github.com/xmletl/core/sink/columnarfile"
	"github.com/xmletl/core/sink/jsonfile"
	"github.com/xmletl/core/sink/relational"
	"github.com/xmletl/core/sink/warehouse"
	"github.com/xmletl/core/value"
	"github.com/xmletl/core/xmlerr"
	"github.com/xmletl/core/xmlrecord"

	"gorm.io/gorm"
)

const component = "orchestrate"

// SinkKind selects which concrete sink package Run materializes records
// through.
type SinkKind int

const (
	JSONFileSink SinkKind = iota
	ColumnarFileSink
	WarehouseSink
	RelationalSink
)

// Config assembles everything Run needs to process one document: where
// to read it from, how to resolve and infer its schema, and where to
// write the resulting records.
type Config struct {
	// SourceSpec names the input, resolved via opener.FromSpec (a bare
	// path or file:// URL, per spec.md §6).
	SourceSpec string

	// StartByteOffset/EndByteOffset implement the optional byte window
	// of spec.md §4.1.
	StartByteOffset int64
	EndByteOffset   int64

	// SchemaFetcher, when non-nil, enables external-schema resolution
	// (C2). A nil fetcher means "no external schema is ever attempted",
	// per spec.md §4.2's own capability-disabled rule.
	SchemaFetcher schemaresolver.SchemaFetcher

	Inference inference.Config

	Sink       SinkKind
	SinkConfig sink.Config

	JSONFile     JSONFileConfig
	ColumnarFile ColumnarFileConfig
	Warehouse    WarehouseConfig
	Relational   RelationalConfig

	// Logger receives structured progress events. Defaults to
	// logrus.StandardLogger() when nil.
	Logger *logrus.Logger
}

// JSONFileConfig configures the jsonfile sink.
type JSONFileConfig struct {
	Path    string
	Framing jsonfile.Framing
}

// ColumnarFileConfig configures the columnarfile sink.
type ColumnarFileConfig struct {
	Path string
}

// WarehouseConfig configures the warehouse sink.
type WarehouseConfig struct {
	Endpoint string
	Table    string
}

// RelationalConfig configures the relational sink. DB must already be
// connected (via relational.Connect or the caller's own *gorm.DB) —
// Run does not own connection lifecycle.
type RelationalConfig struct {
	DB    *gorm.DB
	Table string
}

// Report aggregates the outcome of one Run, extending sink.Report with
// the root element name of the schema Run used, whether an external
// schema was resolved, and the elapsed time.
type Report struct {
	sink.Report
	RootElementName    string
	UsedExternalSchema bool
	Elapsed            time.Duration
}

// Run drains cfg.SourceSpec's records through the configured sink,
// per spec.md §4.6's "CORE entry point": resolve (optional) → infer →
// materialize, logging each stage transition.
func Run(ctx context.Context, cfg Config) (Report, error) {
	started := time.Now()
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	op, err := opener.FromSpec(cfg.SourceSpec)
	if err != nil {
		return Report{}, xmlerr.Input(component, err, "resolving source %s", cfg.SourceSpec)
	}
	logger.WithFields(logrus.Fields{"source": op.Name(), "mode": cfg.Inference.Mode}).Info("starting run")

	var external *value.Schema
	if cfg.SchemaFetcher != nil {
		resolver := schemaresolver.New(cfg.SchemaFetcher)
		schema, ok, rerr := resolver.Resolve(ctx, op)
		if rerr != nil {
			return Report{}, xmlerr.Resolution(component, rerr, "resolving external schema for %s", op.Name())
		}
		if ok {
			external = schema
			logger.WithField("root", schema.RootElementName).Info("resolved external schema")
		} else {
			logger.Info("no external schema resolved")
		}
	}

	schema, err := inference.Infer(ctx, op, cfg.Inference, external)
	if err != nil {
		return Report{}, err
	}
	logger.WithFields(logrus.Fields{"root": schema.RootElementName, "fields": schema.Fields.Len()}).Info("inferred schema")

	s, err := buildSink(schema, cfg)
	if err != nil {
		return Report{}, err
	}

	it, err := xmlrecord.NewExtractor(ctx, op, xmlrecord.Options{
		StartByteOffset: cfg.StartByteOffset,
		EndByteOffset:   cfg.EndByteOffset,
	})
	if err != nil {
		return Report{}, err
	}

	sinkReport, err := sink.Run(ctx, it, s)
	if err != nil {
		logger.WithError(err).Error("run failed")
		return Report{}, err
	}

	report := Report{
		Report:             sinkReport,
		RootElementName:    schema.RootElementName,
		UsedExternalSchema: external != nil,
		Elapsed:            time.Since(started),
	}
	logger.WithFields(logrus.Fields{
		"rows":            report.RowsWritten,
		"batches":         report.BatchesFlushed,
		"coercion_errors": report.CoercionErrors,
		"elapsed":         report.Elapsed,
	}).Info("run complete")
	return report, nil
}

func buildSink(schema *value.Schema, cfg Config) (sink.Sink, error) {
	switch cfg.Sink {
	case JSONFileSink:
		return jsonfile.New(schema, cfg.SinkConfig, cfg.JSONFile.Framing, cfg.JSONFile.Path)
	case ColumnarFileSink:
		return columnarfile.New(schema, cfg.SinkConfig, cfg.ColumnarFile.Path)
	case WarehouseSink:
		return warehouse.New(schema, warehouse.Config{
			Config:   cfg.SinkConfig,
			Endpoint: cfg.Warehouse.Endpoint,
			Table:    cfg.Warehouse.Table,
		})
	case RelationalSink:
		if cfg.Relational.DB == nil {
			return nil, xmlerr.Config(component, nil, "relational sink requires a connected DB")
		}
		return relational.New(schema, relational.Config{
			Config: cfg.SinkConfig,
			Table:  cfg.Relational.Table,
		}, cfg.Relational.DB)
	default:
		return nil, xmlerr.Config(component, nil, "unrecognized sink kind %d", cfg.Sink)
	}
}

// String renders a SinkKind for log fields and error messages.
func (k SinkKind) String() string {
	switch k {
	case JSONFileSink:
		return "jsonfile"
	case ColumnarFileSink:
		return "columnarfile"
	case WarehouseSink:
		return "warehouse"
	case RelationalSink:
		return "relational"
	default:
		return fmt.Sprintf("SinkKind(%d)", int(k))
	}
}
