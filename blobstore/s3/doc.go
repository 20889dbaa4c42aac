// Package s3 implements blobstore.BlobStore on Amazon S3.
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "fission/run-1")
//
// Objects are written through the S3 transfer manager, which switches to
// multipart uploads for large checkpoints.
package s3
