// Package graphs assembles the script creator workflows from the node
// executors in package nodes and runs them on the patterns/graph engine.
//
// [ScriptCreatorGraph] turns one URL into one scraping script:
//
//	fetch -> parse -> generate_scraper
//
// [ScriptCreatorMultiGraph] fans out one ScriptCreatorGraph per URL and
// merges the results with a single model call:
//
//	graph_iterator -> merge_generated_scripts
//
// Both take a [Config] that is validated and deep-copied at construction.
// Every run, and every per-URL pipeline inside a run, works on its own copy,
// so neither the caller nor a concurrent run can observe another's changes.
//
// Example:
//
//	cfg := graphs.DefaultConfig()
//	cfg.LLM.Model = "gpt-4o-mini"
//
//	multi, err := graphs.NewScriptCreatorMultiGraph(
//	    "List every plan with its monthly price",
//	    []string{"https://a.example/pricing", "https://b.example/pricing"},
//	    cfg, nil,
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	script, err := multi.Run(ctx)
//	if script == graphs.FailedScript {
//	    // no source produced a script
//	}
package graphs
