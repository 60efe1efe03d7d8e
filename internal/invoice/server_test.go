package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// staticDocument serves fixed page payloads without touching a renderer
type staticDocument struct {
	pages [][]byte
}

func (d *staticDocument) PageCount() int {
	return len(d.pages)
}

func (d *staticDocument) RenderPage(i int) ([]byte, error) {
	return d.pages[i], nil
}

func (d *staticDocument) Close() error {
	return nil
}

// uploadRequest builds a multipart extract request
func uploadRequest(fields map[string]string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "invoice.pdf")
	Expect(err).NotTo(HaveOccurred())
	_, err = fw.Write([]byte("%PDF-fake"))
	Expect(err).NotTo(HaveOccurred())

	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	Expect(mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, "/api/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var _ = Describe("Server", func() {
	var (
		extractor *mockExtractor
		db        *memoryDB
		openErr   error
		server    *Server
		rec       *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		extractor = newMockExtractor()
		extractor.items["page-0"] = []LineItem{itemWithDescription("a")}
		extractor.items["page-1"] = []LineItem{itemWithDescription("b")}
		db = newMemoryDB()
		openErr = nil

		open := func(data []byte, contentType string) (Document, func(), error) {
			if openErr != nil {
				return nil, nil, openErr
			}
			doc := &staticDocument{pages: [][]byte{[]byte("page-0"), []byte("page-1")}}
			return doc, func() {}, nil
		}

		server = NewServer(NewPipeline(extractor), db, open, BasicAuth{})
		rec = httptest.NewRecorder()
	})

	Describe("POST /api/extract", func() {
		It("should return the normalized line items as JSON by default", func() {
			server.mux.ServeHTTP(rec, uploadRequest(nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var env Envelope
			Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
			Expect(env.LineItems).To(HaveLen(2))

			// Schema completion plus both derived fields
			Expect(env.LineItems[0].Len()).To(Equal(len(RequiredFields) + 2))
		})

		It("should honor the pages limit", func() {
			server.mux.ServeHTTP(rec, uploadRequest(map[string]string{"pages": "1"}))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var env Envelope
			Expect(json.Unmarshal(rec.Body.Bytes(), &env)).To(Succeed())
			Expect(env.LineItems).To(HaveLen(1))
		})

		It("should return CSV when requested", func() {
			server.mux.ServeHTTP(rec, uploadRequest(map[string]string{"format": "csv"}))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("text/csv"))
			Expect(rec.Body.String()).To(ContainSubstring("Description of Goods"))
		})

		It("should save a run", func() {
			server.mux.ServeHTTP(rec, uploadRequest(nil))
			Expect(db.runs).To(HaveLen(1))
		})

		It("should reject an unknown format", func() {
			server.mux.ServeHTTP(rec, uploadRequest(map[string]string{"format": "pdf"}))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject a negative pages value", func() {
			server.mux.ServeHTTP(rec, uploadRequest(map[string]string{"pages": "-1"}))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		When("the upload cannot be opened", func() {
			BeforeEach(func() {
				openErr = errors.New("not a pdf")
			})

			It("should return a bad request", func() {
				server.mux.ServeHTTP(rec, uploadRequest(nil))
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("no line items are extracted", func() {
			BeforeEach(func() {
				extractor.items = map[string][]LineItem{}
			})

			It("should report a no-data message instead of failing", func() {
				server.mux.ServeHTTP(rec, uploadRequest(nil))
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(rec.Body.String()).To(ContainSubstring("no line items extracted"))
			})
		})

		When("no file is provided", func() {
			It("should return a bad request", func() {
				var body bytes.Buffer
				mw := multipart.NewWriter(&body)
				Expect(mw.Close()).To(Succeed())

				req := httptest.NewRequest(http.MethodPost, "/api/extract", &body)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				server.mux.ServeHTTP(rec, req)
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("basic auth is configured", func() {
			BeforeEach(func() {
				server = NewServer(NewPipeline(extractor), db, nil, BasicAuth{Username: "user", Password: "pass"})
			})

			It("should reject requests without credentials", func() {
				server.mux.ServeHTTP(rec, uploadRequest(nil))
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			})
		})
	})

	Describe("GET /api/runs", func() {
		It("should list stored runs as summaries", func() {
			server.mux.ServeHTTP(httptest.NewRecorder(), uploadRequest(nil))

			rec = httptest.NewRecorder()
			server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var summaries []map[string]any
			Expect(json.Unmarshal(rec.Body.Bytes(), &summaries)).To(Succeed())
			Expect(summaries).To(HaveLen(1))
			Expect(summaries[0]).To(HaveKeyWithValue("item_count", float64(2)))
		})

		When("run history is disabled", func() {
			BeforeEach(func() {
				server = NewServer(NewPipeline(extractor), nil, nil, BasicAuth{})
			})

			It("should return not found", func() {
				server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
				Expect(rec.Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("GET /api/runs/{id}", func() {
		It("should return the full run", func() {
			server.mux.ServeHTTP(httptest.NewRecorder(), uploadRequest(nil))

			var id string
			for k := range db.runs {
				id = k
			}

			rec = httptest.NewRecorder()
			server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+id, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var run Run
			Expect(json.Unmarshal(rec.Body.Bytes(), &run)).To(Succeed())
			Expect(run.Items).To(HaveLen(2))
		})

		It("should serve the run as CSV with the /csv suffix", func() {
			server.mux.ServeHTTP(httptest.NewRecorder(), uploadRequest(nil))

			var id string
			for k := range db.runs {
				id = k
			}

			rec = httptest.NewRecorder()
			server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+id+"/csv", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("text/csv"))
		})

		It("should return not found for an unknown run", func() {
			server.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})

// memoryDB is an in-memory DB for server tests
type memoryDB struct {
	runs    map[string]*Run
	saveErr error
}

func newMemoryDB() *memoryDB {
	return &memoryDB{runs: make(map[string]*Run)}
}

func (m *memoryDB) SaveRun(run *Run) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memoryDB) GetRun(id string) (*Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.New("run not found")
	}
	return run, nil
}

func (m *memoryDB) ListRuns() ([]*Run, error) {
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	return runs, nil
}

func (m *memoryDB) Close() error {
	return nil
}

var _ = Describe("contentTypeFromExt", func() {
	It("should map common extensions", func() {
		Expect(contentTypeFromExt("scan.jpg")).To(Equal("image/jpeg"))
		Expect(contentTypeFromExt("scan.HEIC")).To(Equal("image/heic"))
		Expect(contentTypeFromExt("invoice.pdf")).To(Equal("application/pdf"))
	})
})
