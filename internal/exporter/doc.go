// Package exporter writes processed records to CSV files.
//
// CSVWriter is the low-level writer with header, append and streaming
// support. Files start with a UTF-8 BOM so spreadsheet tools detect the
// encoding.
//
// RecordExporter adapts CSVWriter to the processing sinks: each industry
// handler hands it processed chunks and the exporter appends them to one
// file per record kind.
//
//	exp := exporter.NewRecordExporter("out", logger)
//	defer exp.Close()
//	orch := operations.NewOrchestrator(cfg,
//	    operations.WithTransactionSink(exp.TransactionSink()))
package exporter
