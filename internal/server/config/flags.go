package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-m int      max upload size, bytes
//	-k string   default encryption key
//	-l string   log level
//	-t int      shutdown timeout, seconds
//	-u string   AWS access key id
//	-p string   AWS secret access key
//	-g string   AWS region
//	-o string   blob backend (s3, memory)
//	-b string   S3 bucket name
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-s string   metadata backend (dynamodb, postgres, bolt, memory)
//	-d string   PostgreSQL DSN
//	-f string   bbolt database file
//	-w string   log sink backend (cloudwatch, slog, nop)
//
// Only the flags listed above are picked out of os.Args (flagx.FilterArgs),
// so -c/-config and anything else is left alone.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-k", "-l", "-t", "-u", "-p", "-g", "-o", "-b", "-e", "-s", "-d", "-f", "-w",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddress, "a", config.HTTPAddress, "address and port to run server")
	fs.Int64Var(&config.MaxUploadBytes, "m", config.MaxUploadBytes, "max upload size (in bytes)")
	fs.StringVar(&config.DefaultEncryptionKey, "k", config.DefaultEncryptionKey, "default encryption key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	shutdownTimeout := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	fs.StringVar(&config.AWSAccessKeyID, "u", config.AWSAccessKeyID, "AWS access key id")
	fs.StringVar(&config.AWSSecretAccessKey, "p", config.AWSSecretAccessKey, "AWS secret access key")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")

	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.MetadataBackend, "s", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BoltPath, "f", config.BoltPath, "bolt database file")

	fs.StringVar(&config.LogSinkBackend, "w", config.LogSinkBackend, "log sink backend")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
}
