// Command lof scores records with the Local Outlier Factor, ranks them and
// measures the ranking against their labels.
//
//	lof -data wdbc.data -k 10 -threshold 1.5
//	lof -data wdbc.data                      # sweep over k
//	lof -sqlite docs.db -table records -k 5
//	lof -sqlite docs.db -embeddings main._vec_docs -k 5
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
