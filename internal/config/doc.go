// Package config provides configuration parsing for wiretap.
//
// The configuration is stored in wiretap.json or wiretap.toml. This package
// handles loading, defaults, environment overrides and validation.
//
// # Configuration File Structure
//
//	{
//	  "listen": ":8420",
//	  "upstream": "wss://game.example.com/websocket",
//	  "origin": "https://game.example.com",
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "state": {
//	    "waitTimeout": "2s"
//	  },
//	  "relay": {
//	    "maxMessageSize": 1048576,
//	    "writeTimeout": "10s"
//	  },
//	  "store": {
//	    "backend": "file",
//	    "path": "records.json"
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "wiretap"
//	  }
//	}
//
// The TOML form uses the same keys.
//
// # Environment
//
// WIRETAP_LISTEN, WIRETAP_UPSTREAM, WIRETAP_ORIGIN, WIRETAP_LOG_LEVEL,
// WIRETAP_LOG_FORMAT, WIRETAP_STORE_BACKEND, WIRETAP_STORE_PATH,
// WIRETAP_S3_BUCKET, WIRETAP_S3_KEY, WIRETAP_S3_REGION and
// WIRETAP_S3_ENDPOINT override the file.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.ApplyEnv(os.LookupEnv)
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
