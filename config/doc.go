// Package config loads a graphs.Config from a YAML file, a .env file, the
// SCRIPTGRAPH_* environment variables and command line flags, in increasing
// order of precedence.
//
// Nested keys map to environment variables by joining their path with
// underscores: llm.model is read from SCRIPTGRAPH_LLM_MODEL.
package config
