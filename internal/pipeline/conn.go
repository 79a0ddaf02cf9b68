// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"

	"rescribe.xyz/scantools"
)

// Inputs lists the pages to process from a local path or an s3://
// location. Pages in s3 are downloaded to a temporary directory,
// which is removed by the returned cleanup function.
func Inputs(ctx context.Context, input string, logger *log.Logger) ([]string, func(), error) {
	nothing := func() {}
	if !scantools.IsS3(input) {
		paths, err := ListInputs(input, logger)
		return paths, nothing, err
	}

	conn, err := scantools.NewAwsConn(input, logger)
	if err != nil {
		return nil, nothing, err
	}
	err = conn.Init()
	if err != nil {
		return nil, nothing, fmt.Errorf("Error setting up connection to %s: %v", input, err)
	}
	cleanup := func() {
		_ = conn.Cleanup()
	}
	paths, err := conn.Fetch(ctx)
	if err != nil {
		cleanup()
		return nil, nothing, err
	}
	return paths, cleanup, nil
}

// Output sets up somewhere to save processed pages: a local directory
// or an s3:// location. The returned cleanup function removes any
// temporary files.
func Output(output string, logger *log.Logger) (Saver, func(), error) {
	if !scantools.IsS3(output) {
		conn := &scantools.LocalConn{Dir: output, Logger: logger}
		err := conn.Init()
		return conn, func() {}, err
	}

	conn, err := scantools.NewAwsConn(output, logger)
	if err != nil {
		return nil, func() {}, err
	}
	err = conn.Init()
	if err != nil {
		return nil, func() {}, fmt.Errorf("Error setting up connection to %s: %v", output, err)
	}
	return conn, func() { _ = conn.Cleanup() }, nil
}

// Batcher runs a batch of inputs, saving them to conn
type Batcher func(ctx context.Context, inputs []string, conn Saver, progress func(float64)) (Report, error)

// RunBatch lists the inputs, checks them, and runs them through batch,
// saving to output.
func RunBatch(ctx context.Context, input string, output string, logger *log.Logger, progress func(float64), batch Batcher) (Report, error) {
	inputs, cleanupIn, err := Inputs(ctx, input, logger)
	defer cleanupIn()
	if err != nil {
		return Report{}, err
	}

	err = CheckImages(ctx, inputs)
	if err != nil {
		if len(inputs) == 0 {
			return Report{}, fmt.Errorf("Error with images in %s: %v", input, err)
		}
		logger.Println("Warning:", err)
	}

	conn, cleanupOut, err := Output(output, logger)
	defer cleanupOut()
	if err != nil {
		return Report{}, err
	}

	return batch(ctx, inputs, conn, progress)
}

// PrintFailed lists any inputs that failed
func PrintFailed(w io.Writer, r Report) {
	if len(r.Failed) == 0 {
		return
	}
	fmt.Fprintln(w, "Following files failed processing:")
	for _, f := range r.Failed {
		fmt.Fprintf(w, "%s: %v\n", f.Path, f.Err)
	}
}
