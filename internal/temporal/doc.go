// Package temporal runs the offline harvest pipeline on Temporal.
//
// A harvest executes connector queries and bulk-indexes the results into the
// active search backend. The package holds the pieces shared by the API side
// and the worker: client construction, the HarvestClient used to start,
// query and cancel harvests, the input, progress and result types, and worker
// lifecycle helpers. Workflow and activity implementations live in the
// workflows and activities subpackages.
//
// # Single writer
//
// The workflow id is derived from the index name (harvest-<index>), so at most
// one harvest writes to an index at a time. Starting a second one while the
// first is running fails with ErrHarvestRunning:
//
//	hc := temporal.NewHarvestClient(c, "oa-harvest")
//	id, runID, err := hc.StartHarvest(ctx, temporal.HarvestInput{
//	    Index:   "oa_records",
//	    Queries: []temporal.HarvestQuery{{TitleOrKeywords: "open science"}},
//	})
//	if errors.Is(err, temporal.ErrHarvestRunning) {
//	    // wait or cancel the running harvest
//	}
//
// # Signals and queries
//
// SignalCancel stops a harvest after the batch in flight. QueryProgress
// returns a HarvestProgress snapshot.
package temporal
