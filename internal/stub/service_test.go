package stub

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowpilot/flowpilot/pkg/api/http/common"
	"github.com/flowpilot/flowpilot/pkg/structs"
)

func newTestServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(New(time.Millisecond).Router(false))
	t.Cleanup(srv.Close)
	return srv
}

func postJson(t *testing.T, url string, in interface{}) *http.Response {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := http.Post(url, "application/json", &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateJobRejectsUnknownKind(t *testing.T) {
	srv := newTestServer(t)

	resp := postJson(t, srv.URL+"/jobs", map[string]interface{}{"kind": "mine_bitcoin"})
	defer resp.Body.Close()

	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)

	detail := &common.ErrorDetail{}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(detail))
	assert.Equal(t, detail.Detail.Error.Code, "INVALID_INPUT")
}

func TestJobNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/jobs/nope")
	assert.Nil(t, err)
	defer resp.Body.Close()

	assert.Equal(t, resp.StatusCode, http.StatusNotFound)
}

func TestCancelRejectsNonRunJobs(t *testing.T) {
	srv := newTestServer(t)

	resp := postJson(t, srv.URL+"/jobs", &structs.CreateJobRequest{
		Kind:    structs.KindScan,
		Payload: &structs.ScanPayload{URL: "https://example.com", MaxPages: 30, MaxDepth: 2},
	})
	created := &structs.CreateJobResponse{}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(created))
	resp.Body.Close()

	resp = postJson(t, srv.URL+"/jobs/"+created.ID()+"/cancel", nil)
	defer resp.Body.Close()

	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)

	detail := &common.ErrorDetail{}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(detail))
	assert.Equal(t, detail.Detail.Error.Code, "INVALID_OPERATION")
}

func TestCancelFinalJobReturnsItUnchanged(t *testing.T) {
	srv := newTestServer(t)

	resp := postJson(t, srv.URL+"/jobs", &structs.CreateJobRequest{
		Kind: structs.KindRunTests,
		Payload: &structs.RunTestsPayload{
			URL:       "https://example.com",
			Tests:     []structs.FlowSpecTest{{ID: "t-001", Title: "login"}},
			BatchSize: 4,
		},
	})
	created := &structs.CreateJobResponse{}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(created))
	resp.Body.Close()

	// let the scripted run finish
	deadline := time.Now().Add(5 * time.Second)
	job := &structs.Job{}
	for {
		r, err := http.Get(srv.URL + "/jobs/" + created.ID())
		assert.Nil(t, err)
		assert.Nil(t, json.NewDecoder(r.Body).Decode(job))
		r.Body.Close()
		if structs.IsFinalStatus(job.Status) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for job to finish")
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, job.Status, structs.COMPLETED)

	resp = postJson(t, srv.URL+"/jobs/"+created.ID()+"/cancel", nil)
	defer resp.Body.Close()

	out := &structs.Job{}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(out))
	assert.Equal(t, out.Status, structs.COMPLETED) // final jobs stay as they ended
}

func TestJobsFilters(t *testing.T) {
	srv := newTestServer(t)

	for _, kind := range []structs.Kind{structs.KindEvalBaseline, structs.KindEvalAdvanced} {
		resp := postJson(t, srv.URL+"/jobs", &structs.CreateJobRequest{
			Kind:    kind,
			Payload: &structs.EvalPayload{SampleSize: 4, TopK: 5, FetchK: 12},
		})
		assert.Equal(t, resp.StatusCode, http.StatusAccepted)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/jobs?kind=eval_baseline")
	assert.Nil(t, err)
	defer resp.Body.Close()

	jobs := []*structs.Job{}
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(&jobs))
	assert.Equal(t, len(jobs), 1)
	assert.Equal(t, jobs[0].Kind, structs.KindEvalBaseline)
}
