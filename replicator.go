// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package redolith is a logical change-data-capture engine for Oracle-family
// redo logs: it parses the physical redo stream, reassembles transactions
// and emits ordered logical change events.
package redolith

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/c2h5oh/datasize"
	"golang.org/x/sync/errgroup"

	"github.com/B1NARY-GR0UP/redolith/archive"
	"github.com/B1NARY-GR0UP/redolith/builder"
	"github.com/B1NARY-GR0UP/redolith/checkpoint"
	"github.com/B1NARY-GR0UP/redolith/metadata"
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/parser"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/pool"
	"github.com/B1NARY-GR0UP/redolith/transactions"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// Replicator wires the pipeline: reader workers feed a parser per redo file,
// the parser drives the transaction buffer, and committed transactions flow
// into the builder. The memory pool is the only shared mutable state.
type Replicator struct {
	config Config
	logger logger.Logger

	pool    *pool.Pool
	meta    *metadata.Metadata
	buffer  *transactions.Buffer
	builder *builder.JSONBuilder
	chk     *checkpoint.Checkpointer

	sink io.WriteCloser

	// seqMu guards lastSequence, the sequence of the most recently completed
	// redo file, read by checkpointLoop so periodic checkpoints never regress
	// below the sequence a prior save already committed to.
	seqMu        sync.Mutex
	lastSequence types.Seq
}

// Open validates the configuration and builds the pipeline. The returned
// replicator runs once; Close releases its resources.
func Open(config Config) (*Replicator, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	r := &Replicator{
		config: config,
		logger: logger.GetLogger(),
		pool:   pool.New(uint64(config.MinMemory/datasize.MB), uint64(config.MaxMemory/datasize.MB)),
	}

	if config.SchemaSnapshot != "" {
		r.meta = metadata.New(config.Name, config.ContainerID, types.Scn(config.StartScn), config.StartSeq)
		schema, err := metadata.SnapshotSource{Path: config.SchemaSnapshot}.Hydrate(context.Background(), r.meta.Objects())
		if err != nil {
			return nil, err
		}
		r.meta.SetSchema(schema)
	}

	if config.Output == "" {
		r.sink = os.Stdout
	} else {
		file, err := os.OpenFile(config.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, oerr.Wrap(err, oerr.FileWriting, "can not open output file %s", config.Output)
		}
		r.sink = file
	}

	var err error
	if r.builder, err = builder.New(r.sink, config.Format, r.meta); err != nil {
		return nil, err
	}
	r.buffer = transactions.NewBuffer(r.pool, r.builder, transactions.Options{
		SkipRollback: config.SkipRollback,
	})
	if r.chk, err = checkpoint.New(config.Checkpoint.Path, config.Checkpoint.Keep, config.FileMode); err != nil {
		return nil, err
	}

	return r, nil
}

// Run ingests the configured redo files in sequence order. The first worker
// error wins: remaining workers observe the canceled context, drop their
// chunks back to the pool and exit.
func (r *Replicator) Run(ctx context.Context) error {
	queue, err := r.fileQueue()
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		return oerr.New(oerr.MissingFile, "no redo files to process")
	}

	if state, err := r.chk.Load(); err != nil {
		return err
	} else if state != nil {
		r.logger.Infof("resume from %v", state)
		r.setLastSequence(types.Seq(state.Sequence))
		kept := queue[:0]
		for _, file := range queue {
			if file.Sequence > types.Seq(state.Sequence) {
				kept = append(kept, file)
			}
		}
		queue = kept
	}

	stop := make(chan struct{})
	defer close(stop)
	go r.checkpointLoop(stop)

	for _, file := range queue {
		if err := r.processFile(ctx, file); err != nil {
			return err
		}
		r.setLastSequence(file.Sequence)
		if err := r.saveCheckpoint(file.Sequence); err != nil {
			return err
		}
	}
	return nil
}

// setLastSequence records the sequence of the most recently completed redo
// file, so a periodic checkpoint never persists a lower sequence than a
// prior per-file save.
func (r *Replicator) setLastSequence(sequence types.Seq) {
	r.seqMu.Lock()
	r.lastSequence = sequence
	r.seqMu.Unlock()
}

func (r *Replicator) getLastSequence() types.Seq {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	return r.lastSequence
}

// processFile runs one reader worker and one parser over a single redo file
// and joins them.
func (r *Replicator) processFile(ctx context.Context, file archive.LogFile) error {
	r.logger.Infof("process redo file: %s (sequence %d)", file.Path, file.Sequence)

	ch := make(chan parser.ReaderMessage, r.readBufferChunks())
	reader := parser.NewFsReader(r.pool, file.Path, ch)
	p := parser.New(r.pool, r.buffer, file.Sequence, parser.Options{
		DisableChecks: r.config.DisableChecks,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reader.Run(ctx)
	})
	g.Go(func() error {
		return p.Run(ctx, r.pool, ch)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// chunks still in flight on the channel belong to nobody now
	for {
		select {
		case msg := <-ch:
			if msg.Kind == parser.MessageRead {
				r.pool.Release(msg.Chunk)
			}
		default:
			return nil
		}
	}
}

func (r *Replicator) fileQueue() ([]archive.LogFile, error) {
	if len(r.config.RedoFiles) > 0 {
		queue := make([]archive.LogFile, 0, len(r.config.RedoFiles))
		for i, path := range r.config.RedoFiles {
			queue = append(queue, archive.LogFile{
				Path:     path,
				Sequence: r.config.StartSeq + types.Seq(i) + 1,
			})
		}
		return queue, nil
	}

	digger, err := archive.NewOfflineDigger(
		r.config.Archive.LogFormat,
		r.config.Archive.RecoveryFileDestination,
		r.config.Archive.Context,
		nil)
	if err != nil {
		return nil, err
	}
	return digger.Queue()
}

func (r *Replicator) readBufferChunks() int {
	return int(r.config.ReadBufferMax / (pool.ChunkSizeMB * datasize.MB))
}

func (r *Replicator) checkpointLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(r.config.Checkpoint.IntervalS) * time.Second)
	defer ticker.Stop()

	var lastSaved uint64
	for {
		select {
		case <-ticker.C:
			if mark := r.buffer.EmittedMark().DoneUntil(); mark > lastSaved {
				lastSaved = mark
				if err := r.saveCheckpoint(r.getLastSequence()); err != nil {
					r.logger.Errorf("periodic checkpoint failed: %v", err)
				}
			}
		case <-stop:
			return
		}
	}
}

func (r *Replicator) saveCheckpoint(sequence types.Seq) error {
	return r.chk.Save(&checkpoint.State{
		Scn:       int64(r.buffer.EmittedMark().DoneUntil()),
		Sequence:  int32(sequence),
		Timestamp: time.Now().Unix(),
	})
}

// Close drops open transactions and closes the sink.
func (r *Replicator) Close() {
	r.buffer.Close()
	if r.sink != os.Stdout {
		if err := r.sink.Close(); err != nil {
			r.logger.Errorf("can not close output sink: %v", err)
		}
	}
}
