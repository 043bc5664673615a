// Package config loads runtime configuration for the inventaire CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   GraphQL endpoint URL
//	-d string   local database path
//	-i int      online status check interval (seconds)
//	-b int      scans per sync batch
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "api_endpoint": "https://inventory.example.org/graphql",
//	  "database_path": "/var/lib/inventaire/local.db",
//	  "log_file": "/var/log/inventaire.log",
//	  "online_check_interval": "5s",
//	  "request_timeout": "30s",
//	  "scan_batch_size": 2,
//	  "article_page_size": 500,
//	  "image_quality": 70,
//	  "group_role": "counter",
//	  "s3_endpoint": "http://127.0.0.1:9000",
//	  "s3_region": "us-east-1"
//	}
//
// Environment variables are not read directly; the AWS SDK default chain
// still applies to S3 credentials left empty here.
package config
