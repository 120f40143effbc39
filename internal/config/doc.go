// Package config provides configuration management for the detection server.
//
// Configuration is loaded from environment variables using the env package.
// An optional INI file named by FFTDETECT_CONFIG supplies the same keys;
// real environment variables take precedence over the file.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
