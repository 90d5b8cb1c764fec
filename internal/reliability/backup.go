package reliability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/config"
	"github.com/aristath/papertrade/internal/database"
)

// BackupJob uploads a consistent snapshot of the broker database to S3.
// The snapshot is taken with VACUUM INTO, which produces a compact,
// transactionally consistent copy without blocking writers. The cache
// database is deliberately not backed up.
type BackupJob struct {
	cfg      *config.BackupConfig
	brokerDB *database.DB
	log      zerolog.Logger
}

// NewBackupJob creates a new backup job.
func NewBackupJob(cfg *config.BackupConfig, brokerDB *database.DB, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		cfg:      cfg,
		brokerDB: brokerDB,
		log:      log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "backup" }

// Run takes a snapshot and uploads it.
func (j *BackupJob) Run() error {
	if !j.cfg.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	staging := filepath.Join(filepath.Dir(j.brokerDB.Path()), fmt.Sprintf(".backup-%d.db", time.Now().Unix()))
	defer os.Remove(staging)

	if _, err := j.brokerDB.Exec("VACUUM INTO ?", staging); err != nil {
		return fmt.Errorf("failed to snapshot broker database: %w", err)
	}

	file, err := os.Open(staging)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	client, err := j.s3Client(ctx)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s/broker-%s.db", j.cfg.S3Prefix, time.Now().UTC().Format("20060102T150405Z"))
	uploader := manager.NewUploader(client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(j.cfg.S3Bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	j.log.Info().Str("bucket", j.cfg.S3Bucket).Str("key", key).Msg("Backup uploaded")
	return nil
}

func (j *BackupJob) s3Client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(j.cfg.S3Region),
	}
	if j.cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(j.cfg.AccessKey, j.cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg), nil
}
