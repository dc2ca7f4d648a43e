package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/c001-ZHSH/star-plan-analysis/internal/apitest"
	"github.com/c001-ZHSH/star-plan-analysis/internal/client"
	"github.com/c001-ZHSH/star-plan-analysis/pkg/requestid"
)

var _ = Describe("star plan client", func() {
	var (
		ctx     context.Context
		backend *apitest.Server
		c       *client.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = apitest.NewServer()
		c = client.NewClient(backend.URL, 5*time.Second)
	})

	AfterEach(func() {
		backend.Close()
	})

	Describe("NewClient", func() {
		It("creates client with default timeout when timeout is 0", func() {
			Expect(client.NewClient("http://localhost:5000", 0)).NotTo(BeNil())
		})

		It("builds download handles under the trimmed base url", func() {
			c := client.NewClient("http://localhost:5000/", 0)
			Expect(c.DownloadURL("job 1")).To(Equal("http://localhost:5000/api/download/job%201"))
		})
	})

	Describe("FetchUniversities", func() {
		It("returns the catalog in server order", func() {
			backend.SetUniversities("國立臺灣大學", "國立清華大學")

			targets, err := c.FetchUniversities(ctx, "https://example.org/list")
			Expect(err).To(BeNil())
			Expect(targets).To(Equal([]client.Target{{Name: "國立臺灣大學"}, {Name: "國立清華大學"}}))
			Expect(backend.FetchRequests()).To(Equal([]client.SourceRequest{{URL: "https://example.org/list"}}))
			Expect(backend.RequestIDs()).To(HaveLen(1))
			Expect(backend.RequestIDs()[0]).NotTo(BeEmpty())
		})

		It("returns an empty catalog", func() {
			backend.SetUniversities()

			targets, err := c.FetchUniversities(ctx, "https://example.org/list")
			Expect(err).To(BeNil())
			Expect(targets).To(BeEmpty())
		})

		It("carries the server message of a failure", func() {
			backend.FailFetch(http.StatusInternalServerError, "timeout")

			_, err := c.FetchUniversities(ctx, "https://example.org/list")
			Expect(err).NotTo(BeNil())

			var statusErr *client.ErrUnexpectedStatus
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(statusErr.Message).To(Equal("timeout"))
			Expect(client.ServerMessage(err)).To(Equal("timeout"))
		})
	})

	Describe("StartJob", func() {
		It("sends url and targets and returns the job id", func() {
			backend.SetJobID("j1")

			jobID, err := c.StartJob(ctx, "https://example.org/list", []string{"A", "C"})
			Expect(err).To(BeNil())
			Expect(jobID).To(Equal("j1"))
			Expect(backend.StartRequests()).To(Equal([]client.StartRequest{
				{URL: "https://example.org/list", Targets: []string{"A", "C"}},
			}))
		})

		It("rejects a response without job id", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{}`))
			}))
			defer server.Close()

			_, err := client.NewClient(server.URL, time.Second).StartJob(ctx, "u", []string{"A"})
			var invalid *client.ErrInvalidResponse
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})
	})

	Describe("JobStatus", func() {
		It("returns the scripted status", func() {
			backend.SetStatuses(client.JobStatus{Status: client.StatusRunning, Progress: 40, Message: "Scraping A"})

			st, err := c.JobStatus(ctx, "job-1")
			Expect(err).To(BeNil())
			Expect(st).To(Equal(&client.JobStatus{Status: client.StatusRunning, Progress: 40, Message: "Scraping A"}))
		})

		It("reports unknown jobs with the server message", func() {
			backend.SetStatuses(client.JobStatus{Status: client.StatusRunning})

			_, err := c.JobStatus(ctx, "nope")
			var statusErr *client.ErrUnexpectedStatus
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusNotFound))
			Expect(statusErr.Message).To(Equal("Job not found"))
		})

		It("rejects an unknown status value", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"paused","progress":10,"message":""}`))
			}))
			defer server.Close()

			_, err := client.NewClient(server.URL, time.Second).JobStatus(ctx, "j")
			var invalid *client.ErrInvalidResponse
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("rejects progress above 100", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"running","progress":120,"message":""}`))
			}))
			defer server.Close()

			_, err := client.NewClient(server.URL, time.Second).JobStatus(ctx, "j")
			Expect(err).NotTo(BeNil())
		})

		It("rejects a malformed body", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			}))
			defer server.Close()

			_, err := client.NewClient(server.URL, time.Second).JobStatus(ctx, "j")
			var invalid *client.ErrInvalidResponse
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(client.ServerMessage(err)).To(BeEmpty())
		})

		It("stamps a request id", func() {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(requestid.Header)
				_, _ = w.Write([]byte(`{"status":"running","progress":1,"message":""}`))
			}))
			defer server.Close()

			reqCtx := requestid.ToContext(ctx, "req-42")
			_, err := client.NewClient(server.URL, time.Second).JobStatus(reqCtx, "j")
			Expect(err).To(BeNil())
			Expect(got).To(Equal("req-42"))
		})
	})

	Describe("Preview", func() {
		It("decodes string, number and null cells", func() {
			backend.SetPreview(map[string]any{
				client.FieldSchool:     "國立臺灣大學",
				client.FieldDepartment: "醫學系",
				client.FieldQuota:      3,
				client.FieldChinese:    "頂標",
				client.FieldEnglish:    nil,
			})

			rows, err := c.Preview(ctx, "job-1")
			Expect(err).To(BeNil())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].School()).To(Equal("國立臺灣大學"))
			Expect(rows[0].Department()).To(Equal("醫學系"))
			Expect(rows[0].Quota()).To(Equal("3"))
			Expect(rows[0].Get(client.FieldChinese)).To(Equal("頂標"))
			Expect(rows[0].Get(client.FieldEnglish)).To(BeEmpty())
			Expect(rows[0].Get(client.FieldMathA)).To(BeEmpty())
		})

		It("treats a missing preview field as empty", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			}))
			defer server.Close()

			rows, err := client.NewClient(server.URL, time.Second).Preview(ctx, "j")
			Expect(err).To(BeNil())
			Expect(rows).To(BeEmpty())
		})

		It("surfaces preview failures", func() {
			backend.FailPreview(http.StatusInternalServerError, "boom")

			_, err := c.Preview(ctx, "job-1")
			Expect(client.ServerMessage(err)).To(Equal("boom"))
		})
	})

	Describe("Download", func() {
		It("streams the workbook with its attachment name", func() {
			backend.SetStatuses(client.JobStatus{Status: client.StatusCompleted, Progress: 100})
			backend.SetPreview(map[string]any{client.FieldSchool: "A", client.FieldDepartment: "B"})

			dl, err := c.Download(ctx, "job-1")
			Expect(err).To(BeNil())
			defer func() {
				_ = dl.Body.Close()
			}()

			Expect(dl.Filename).To(Equal(client.DefaultDownloadName))
			content, err := io.ReadAll(dl.Body)
			Expect(err).To(BeNil())
			Expect(content).NotTo(BeEmpty())
		})

		It("falls back to the default name without a disposition", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("xlsx"))
			}))
			defer server.Close()

			dl, err := client.NewClient(server.URL, time.Second).Download(ctx, "j")
			Expect(err).To(BeNil())
			defer func() {
				_ = dl.Body.Close()
			}()
			Expect(dl.Filename).To(Equal(client.DefaultDownloadName))
		})

		It("strips directories from the attachment name", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Disposition", `attachment; filename="../../etc/out.xlsx"`)
				_, _ = w.Write([]byte("xlsx"))
			}))
			defer server.Close()

			dl, err := client.NewClient(server.URL, time.Second).Download(ctx, "j")
			Expect(err).To(BeNil())
			defer func() {
				_ = dl.Body.Close()
			}()
			Expect(dl.Filename).To(Equal("out.xlsx"))
		})

		It("fails while the job is not finished", func() {
			backend.SetStatuses(client.JobStatus{Status: client.StatusRunning, Progress: 10})

			_, err := c.Download(ctx, "job-1")
			var statusErr *client.ErrUnexpectedStatus
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Cell", func() {
		It("keeps non-string values verbatim", func() {
			var row client.PreviewRow
			Expect(json.Unmarshal([]byte(`{"a":12.5,"b":true,"c":" x "}`), &row)).To(Succeed())
			Expect(row.Get("a")).To(Equal("12.5"))
			Expect(row.Get("b")).To(Equal("true"))
			Expect(row.Get("c")).To(Equal("x"))
		})
	})

	Describe("Status", func() {
		It("is terminal only for completed and error", func() {
			Expect(client.StatusStarting.Terminal()).To(BeFalse())
			Expect(client.StatusRunning.Terminal()).To(BeFalse())
			Expect(client.StatusCompleted.Terminal()).To(BeTrue())
			Expect(client.StatusError.Terminal()).To(BeTrue())
		})
	})
})
