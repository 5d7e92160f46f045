// Package config loads server configuration from notes.json with
// NOTES_* environment overrides.
//
//	{
//	  "addr": "127.0.0.1:8000",
//	  "database": "notes.db",
//	  "logLevel": "info",
//	  "router": {"history": "path", "base": "", "maxHistory": 100},
//	  "analytics": {"cacheTTL": "5m", "topN": 10},
//	  "summarizer": {"endpoint": ""},
//	  "export": {"bucket": "backups", "prefix": "notes", "region": "us-east-1"},
//	  "observability": {"metrics": true, "tracing": false}
//	}
//
// Secrets (NOTES_GEMINI_API_KEY, NOTES_S3_ACCESS_KEY, NOTES_S3_SECRET_KEY)
// are read from the environment only.
package config
