package imagestore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/authorid/authorid/pkg/imagestore"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// mockS3 is a thread-safe in-memory S3 backend.
type mockS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Key] = data
	if in.ContentType != nil {
		m.contentTypes[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func readAll(store imagestore.Store, key string) []byte {
	rc, err := store.Get(context.Background(), key)
	Expect(err).NotTo(HaveOccurred())
	defer rc.Close()
	data, err := io.ReadAll(rc)
	Expect(err).NotTo(HaveOccurred())
	return data
}

// behaves registers the round-trip specs shared by every Store.
func behaves(newStore func() imagestore.Store) {
	var (
		store imagestore.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newStore()
	})

	It("round-trips an image", func() {
		Expect(store.Put(ctx, "users/u1/samples/s1", []byte("png-bytes"), "image/png")).To(Succeed())
		Expect(readAll(store, "users/u1/samples/s1")).To(Equal([]byte("png-bytes")))
	})

	It("overwrites an existing key", func() {
		Expect(store.Put(ctx, "k", []byte("one"), "")).To(Succeed())
		Expect(store.Put(ctx, "k", []byte("two"), "")).To(Succeed())
		Expect(readAll(store, "k")).To(Equal([]byte("two")))
	})

	It("reports missing keys with ErrNotFound", func() {
		_, err := store.Get(ctx, "users/u1/samples/missing")
		Expect(errors.Is(err, imagestore.ErrNotFound)).To(BeTrue())
	})

	It("deletes idempotently", func() {
		Expect(store.Put(ctx, "k", []byte("x"), "")).To(Succeed())
		Expect(store.Delete(ctx, "k")).To(Succeed())
		Expect(store.Delete(ctx, "k")).To(Succeed())

		_, err := store.Get(ctx, "k")
		Expect(errors.Is(err, imagestore.ErrNotFound)).To(BeTrue())
	})
}

var _ = Describe("Local", func() {
	behaves(func() imagestore.Store {
		store, err := imagestore.NewLocal(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		return store
	})

	It("lays keys out as nested directories", func() {
		root := GinkgoT().TempDir()
		store, err := imagestore.NewLocal(filepath.Join(root, "images"))
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Put(context.Background(), "users/u1/samples/s1", []byte("x"), "")).To(Succeed())
		_, err = os.Stat(filepath.Join(root, "images", "users", "u1", "samples", "s1"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects keys that escape the root", func() {
		store, err := imagestore.NewLocal(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Put(context.Background(), "../outside", []byte("x"), "")).To(HaveOccurred())
		_, err = store.Get(context.Background(), "/etc/passwd")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Memory", func() {
	behaves(func() imagestore.Store {
		return imagestore.NewMemory()
	})
})

var _ = Describe("S3Store", func() {
	behaves(func() imagestore.Store {
		return imagestore.NewS3(newMockS3(), "bucket", "")
	})

	It("prefixes object keys and records the content type", func() {
		mock := newMockS3()
		store := imagestore.NewS3(mock, "bucket", "authorid")

		Expect(store.Put(context.Background(), "users/u1/samples/s1", []byte("x"), "image/png")).To(Succeed())
		Expect(mock.objects).To(HaveKey("authorid/users/u1/samples/s1"))
		Expect(mock.contentTypes).To(HaveKeyWithValue("authorid/users/u1/samples/s1", "image/png"))
	})

	It("surfaces upload failures", func() {
		mock := newMockS3()
		mock.putErr = &apiError{code: "AccessDenied"}
		store := imagestore.NewS3(mock, "bucket", "")

		err := store.Put(context.Background(), "k", []byte("x"), "")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, imagestore.ErrNotFound)).To(BeFalse())
	})
})

// setenv sets (or, for an empty value, unsets) environment variables for
// the current test and restores them afterwards.
func setenv(env map[string]string) {
	for key, value := range env {
		old, had := os.LookupEnv(key)
		if value == "" {
			Expect(os.Unsetenv(key)).To(Succeed())
		} else {
			Expect(os.Setenv(key, value)).To(Succeed())
		}
		DeferCleanup(func() {
			if had {
				os.Setenv(key, old)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

var _ = Describe("NewS3Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		dir := GinkgoT().TempDir()
		emptyConfig := filepath.Join(dir, "config")
		Expect(os.WriteFile(emptyConfig, nil, 0o600)).To(Succeed())

		setenv(map[string]string{
			"AWS_ACCESS_KEY_ID":           "",
			"AWS_SECRET_ACCESS_KEY":       "",
			"AWS_SESSION_TOKEN":           "",
			"AWS_PROFILE":                 "",
			"AWS_REGION":                  "",
			"AWS_CONFIG_FILE":             emptyConfig,
			"AWS_SHARED_CREDENTIALS_FILE": filepath.Join(dir, "missing"),
			"AWS_EC2_METADATA_DISABLED":   "true",
		})
	})

	It("applies the default region", func() {
		client, err := imagestore.NewS3Client(ctx, imagestore.S3Config{Bucket: "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Options().Region).To(Equal("us-east-1"))
	})

	It("uses path-style addressing for custom endpoints", func() {
		client, err := imagestore.NewS3Client(ctx, imagestore.S3Config{Bucket: "b", Endpoint: "http://localhost:9000"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Options().UsePathStyle).To(BeTrue())
		Expect(*client.Options().BaseEndpoint).To(Equal("http://localhost:9000"))
	})

	It("reads credentials from the environment", func() {
		setenv(map[string]string{
			"AWS_ACCESS_KEY_ID":     "AKIAENVKEY",
			"AWS_SECRET_ACCESS_KEY": "env-secret",
		})

		client, err := imagestore.NewS3Client(ctx, imagestore.S3Config{Bucket: "b"})
		Expect(err).NotTo(HaveOccurred())

		creds, err := client.Options().Credentials.Retrieve(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.AccessKeyID).To(Equal("AKIAENVKEY"))
	})

	It("reads credentials from the shared credentials file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "credentials")
		Expect(os.WriteFile(path, []byte(
			"[default]\naws_access_key_id = AKIAFILEKEY\naws_secret_access_key = file-secret\n",
		), 0o600)).To(Succeed())
		setenv(map[string]string{"AWS_SHARED_CREDENTIALS_FILE": path})

		client, err := imagestore.NewS3Client(ctx, imagestore.S3Config{Bucket: "b"})
		Expect(err).NotTo(HaveOccurred())

		creds, err := client.Options().Credentials.Retrieve(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.AccessKeyID).To(Equal("AKIAFILEKEY"))
		Expect(creds.SecretAccessKey).To(Equal("file-secret"))
	})

	It("honours AWS_PROFILE", func() {
		path := filepath.Join(GinkgoT().TempDir(), "credentials")
		Expect(os.WriteFile(path, []byte(
			"[default]\naws_access_key_id = AKIADEFAULT\naws_secret_access_key = d\n\n"+
				"[images]\naws_access_key_id = AKIAPROFILE\naws_secret_access_key = p\n",
		), 0o600)).To(Succeed())
		setenv(map[string]string{
			"AWS_SHARED_CREDENTIALS_FILE": path,
			"AWS_PROFILE":                 "images",
		})

		client, err := imagestore.NewS3Client(ctx, imagestore.S3Config{Bucket: "b"})
		Expect(err).NotTo(HaveOccurred())

		creds, err := client.Options().Credentials.Retrieve(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.AccessKeyID).To(Equal("AKIAPROFILE"))
	})
})
