// Package minio implements blobstore.Store using the MinIO client.
//
// MinIO is a high-performance, S3-compatible object storage system. The
// native client works against MinIO itself and against other S3-compatible
// systems like Ceph, SeaweedFS, and Garage, without pulling in the AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "indexes/")
//	err = engine.Snapshot(ctx, store, "snap-001/")
package minio
