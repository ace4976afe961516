// Package config loads regtree configuration with viper.
//
// Values come from, lowest priority first: built-in defaults, the file
// .regtree/config.yaml under the working directory (or an explicit file),
// and REGTREE_* environment variables. Nested keys use underscores in the
// environment, so storage.db_path is REGTREE_STORAGE_DB_PATH.
//
//	storage:
//	  backend: sqlite
//	  db_path: ~/.regtree/regtree.db
//	import:
//	  workers: 4
//	  patterns: ["*.txt", "*.md"]
//	search:
//	  limit: 20
//	  cache_size: 1000
//	  cache_ttl: 1h
//	http:
//	  addr: 127.0.0.1:8080
//	log:
//	  level: info
//	  format: text
package config
