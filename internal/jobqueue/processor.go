package jobqueue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mapequation/infomap-go/internal/coreinfomap/engine"
	"github.com/mapequation/infomap-go/internal/coreinfomap/result"
	"github.com/mapequation/infomap-go/internal/netreader"
	"github.com/mapequation/infomap-go/internal/netstore"
	"github.com/mapequation/infomap-go/internal/topmodules"
)

// Processor runs a single ClusterJob to completion.
type Processor interface {
	Process(ctx context.Context, job *ClusterJob) (*Result, error)
}

// ClusterProcessor is the Processor backing a live Queue: it reads the
// job's input network, runs the Infomap engine, and writes the
// requested output format, the same pipeline cmd/infomap-cli's run
// command drives from the command line.
type ClusterProcessor struct {
	registry *netreader.Registry
	logger   engine.Logger
	store    *netstore.Store // nil unless jobs reference object-storage keys
}

// NewClusterProcessor builds a ClusterProcessor using the default
// reader registry.
func NewClusterProcessor(logger engine.Logger) *ClusterProcessor {
	return &ClusterProcessor{registry: netreader.DefaultRegistry(), logger: logger}
}

// WithStore attaches an object-storage backend, letting jobs that set
// NetworkKey/ResultKey fetch input and publish output through it instead
// of relying solely on a filesystem shared with the submitter.
func (p *ClusterProcessor) WithStore(store *netstore.Store) *ClusterProcessor {
	p.store = store
	return p
}

func (p *ClusterProcessor) Process(ctx context.Context, job *ClusterJob) (*Result, error) {
	if job.NetworkKey != "" {
		if p.store == nil {
			return nil, fmt.Errorf("jobqueue: job %s references network key %q but no object-storage backend is configured", job.UUID, job.NetworkKey)
		}
		if err := p.store.FetchNetwork(ctx, job.NetworkKey, job.InputPath); err != nil {
			return nil, fmt.Errorf("jobqueue: fetching network %s: %w", job.NetworkKey, err)
		}
	}

	f, err := os.Open(job.InputPath)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: opening %s: %w", job.InputPath, err)
	}
	defer f.Close()

	format := job.InputFmt
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(job.InputPath)), ".")
	}
	reader, ok := p.registry.Get(format)
	if !ok {
		reader, ok = p.registry.Get("link-list")
		if !ok {
			return nil, fmt.Errorf("jobqueue: no reader for format %q", format)
		}
	}

	data, err := reader.Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: reading network: %w", err)
	}

	tr, err := netreader.Build(data, netreader.BuildConfig{})
	if err != nil {
		return nil, fmt.Errorf("jobqueue: building network: %w", err)
	}

	eng := engine.New(job.Config, p.logger)
	res, err := eng.Run(ctx, tr)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: running engine: %w", err)
	}

	leaves := result.Collect(res.Tree, res.Tree.Root())

	outFormat := job.Format
	if outFormat == "" {
		outFormat = "tree"
	}
	outPath := job.OutputPath
	if outPath == "" {
		outPath = "result"
	}
	outPath = outPath + "." + outFormat

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("jobqueue: creating %s: %w", outPath, err)
	}
	defer out.Close()

	switch outFormat {
	case "clu":
		err = result.WriteClu(out, leaves)
	case "ftree":
		err = result.WriteFtree(out, res.Tree, leaves)
	default:
		err = result.WriteTree(out, leaves)
	}
	if err != nil {
		return nil, fmt.Errorf("jobqueue: writing %s: %w", outPath, err)
	}

	if job.ResultKey != "" {
		if p.store == nil {
			return nil, fmt.Errorf("jobqueue: job %s references result key %q but no object-storage backend is configured", job.UUID, job.ResultKey)
		}
		if err := p.store.UploadResult(ctx, job.ResultKey, outPath); err != nil {
			return nil, fmt.Errorf("jobqueue: publishing result %s: %w", job.ResultKey, err)
		}
	}

	ranked := topmodules.Calculate(leaves, topmodules.WithTopN(10))

	return &Result{
		JobUUID:       job.UUID,
		Codelength:    res.Codelength,
		NumLevels:     res.NumLevels,
		NumTopModules: res.NumTopModules,
		OutputPath:    outPath,
		TopModules:    ranked.Modules,
	}, nil
}
