package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options contains configuration for the S3-compatible event archive.
type S3Options struct {
	// Endpoint is the S3 service endpoint. Empty disables the archive.
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	BucketName      string `json:"bucket-name" mapstructure:"bucket-name"`
	Region          string `json:"region" mapstructure:"region"`
}

// NewS3Options creates a S3Options object with default parameters.
func NewS3Options() *S3Options {
	return &S3Options{
		UseSSL:     true,
		BucketName: "fleet-events",
		Region:     "us-east-1",
	}
}

// Enabled reports whether an archive endpoint has been configured.
func (o *S3Options) Enabled() bool {
	return o != nil && o.Endpoint != ""
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *S3Options) Validate() []error {
	return nil
}

// AddFlags adds flags for S3Options to the specified FlagSet.
func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, "s3.endpoint", o.Endpoint, "S3 service endpoint (e.g. s3.amazonaws.com or minio.local). Empty disables the event archive.")
	fs.StringVar(&o.AccessKeyID, "s3.access-key-id", o.AccessKeyID, "S3 access key ID")
	fs.StringVar(&o.SecretAccessKey, "s3.secret-access-key", o.SecretAccessKey, "S3 secret access key")
	fs.BoolVar(&o.UseSSL, "s3.use-ssl", o.UseSSL, "Enable SSL for S3 connection")
	fs.StringVar(&o.BucketName, "s3.bucket-name", o.BucketName, "S3 bucket name for archived vehicle events")
	fs.StringVar(&o.Region, "s3.region", o.Region, "S3 region")
}
