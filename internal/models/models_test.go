package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeFields(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	return fields
}

func TestDecodeApplicationPatch(t *testing.T) {
	t.Run("known fields and extras", func(t *testing.T) {
		fields := decodeFields(t, `{
			"applicationId": "APP-1",
			"applicationtype": "claim",
			"status": "processing",
			"currentStep": "ingest",
			"agentData": {"foo": "bar", "nested": {"x": [1, 2]}},
			"stepHistory": [],
			"startTime": "2025-03-04",
			"customer_id": 42,
			"claimRecordId": 7,
			"riskScore": 0.3,
			"lastUpdated": "1999-01-01"
		}`)

		p, err := DecodeApplicationPatch(fields)
		require.NoError(t, err)

		assert.Equal(t, "APP-1", p.ApplicationID)
		assert.Equal(t, TrackClaim, p.Track)
		assert.Equal(t, "processing", *p.Status)
		assert.Equal(t, "ingest", *p.CurrentStep)
		assert.Equal(t, "42", *p.CustomerID)
		assert.Equal(t, 7, *p.ClaimRecordID)
		assert.Equal(t, "2025-03-04", p.StartTime.String())
		assert.JSONEq(t, `{"foo": "bar", "nested": {"x": [1, 2]}}`, string(p.AgentData))
		assert.Equal(t, []string{"lastUpdated", "riskScore"}, p.ExtraKeys())
		assert.Nil(t, p.ReviewReason)
		assert.Nil(t, p.AuditTrail)
	})

	t.Run("default track is policy", func(t *testing.T) {
		p, err := DecodeApplicationPatch(decodeFields(t, `{"applicationId":"A"}`))
		require.NoError(t, err)
		assert.Equal(t, TrackPolicy, p.Track)
		assert.Nil(t, p.ApplicationType)
	})

	t.Run("legacy type stays on policy track", func(t *testing.T) {
		p, err := DecodeApplicationPatch(decodeFields(t, `{"applicationId":"A","applicationtype":"life"}`))
		require.NoError(t, err)
		assert.Equal(t, TrackPolicy, p.Track)
		assert.Equal(t, "life", *p.ApplicationType)
	})

	t.Run("camel case alias wins", func(t *testing.T) {
		p, err := DecodeApplicationPatch(decodeFields(t, `{"applicationId":"A","customerId":"c1","customer_id":"c2"}`))
		require.NoError(t, err)
		assert.Equal(t, "c1", *p.CustomerID)
	})

	t.Run("null means unset", func(t *testing.T) {
		p, err := DecodeApplicationPatch(decodeFields(t, `{"applicationId":"A","status":null,"agentData":null}`))
		require.NoError(t, err)
		assert.Nil(t, p.Status)
		assert.Nil(t, p.AgentData)
	})

	t.Run("bad start time", func(t *testing.T) {
		_, err := DecodeApplicationPatch(decodeFields(t, `{"applicationId":"A","startTime":"yesterday"}`))
		assert.Error(t, err)
	})
}

func TestApplicationPatch_ApplyTo(t *testing.T) {
	app := &Application{
		ID:          3,
		Status:      StringPtr("new"),
		CurrentStep: StringPtr("ingest"),
		AgentData:   json.RawMessage(`{"a":1}`),
	}
	p, err := DecodeApplicationPatch(decodeFields(t, `{"applicationId":"A","status":"done"}`))
	require.NoError(t, err)

	p.ApplyTo(app)

	assert.Equal(t, "done", app.StatusValue())
	assert.Equal(t, "ingest", app.CurrentStepValue())
	assert.JSONEq(t, `{"a":1}`, string(app.AgentData))
	assert.Equal(t, 3, app.ID)
}

func TestStep_RoundTripKeepsUnknownKeys(t *testing.T) {
	in := `[{"id":1,"name":"ingest","status":"completed","summary":"ok","meta":{"k":[1,"x"]}},
	        {"id":"2","name":"verify","status":7}]`

	steps, err := DecodeSteps(json.RawMessage(in))
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, "ingest", *steps[0].Name)
	assert.Nil(t, steps[1].Status, "non-string status is kept verbatim, not parsed")

	out, err := EncodeSteps(steps)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestStep_Matches(t *testing.T) {
	steps, err := DecodeSteps(json.RawMessage(`[{"id":1,"name":"ingest"},{"id":"2","name":"verify"},{"name":"decide"}]`))
	require.NoError(t, err)

	assert.True(t, steps[0].Matches(1, "other"))
	assert.True(t, steps[0].Matches(9, "ingest"))
	assert.False(t, steps[1].Matches(2, "other"), "string ids never equal numeric ids")
	assert.True(t, steps[1].Matches(2, "verify"))
	assert.True(t, steps[2].Matches(0, "decide"))
	assert.False(t, steps[2].Matches(0, "Decide"))
}

func TestStep_MatchesNullID(t *testing.T) {
	steps, err := DecodeSteps(json.RawMessage(`[{"id":null,"name":"ingest"}]`))
	require.NoError(t, err)

	assert.False(t, steps[0].Matches(0, "other-step"))
	assert.True(t, steps[0].Matches(0, "ingest"))
}

func TestStep_IsOpen(t *testing.T) {
	for status, open := range map[string]bool{
		"pending": true, "in_progress": true, "in-progress": true, "completed": false, "": false,
	} {
		s := Step{Status: StringPtr(status)}
		assert.Equal(t, open, s.IsOpen(), status)
	}
}

func TestDecodeSteps_Variants(t *testing.T) {
	steps, err := DecodeSteps(nil)
	assert.NoError(t, err)
	assert.Empty(t, steps)

	steps, err = DecodeSteps(json.RawMessage(`"[{\"id\":1,\"name\":\"a\"}]"`))
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "a", *steps[0].Name)

	_, err = DecodeSteps(json.RawMessage(`{"id":1}`))
	assert.Error(t, err)
}

func TestEmbeddedStepHistory(t *testing.T) {
	raw, err := EmbeddedStepHistory(json.RawMessage(`{"stepHistory":[{"id":1}],"other":true}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(raw))

	raw, err = EmbeddedStepHistory(json.RawMessage(`{"other":true}`))
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = EmbeddedStepHistory(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestEnsureEmbeddedStepHistory(t *testing.T) {
	steps := []Step{{ID: json.RawMessage(`1`), Name: StringPtr("a")}}

	out, err := EnsureEmbeddedStepHistory(json.RawMessage(`{"keep":{"deep":[1,2,3]}}`), steps)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keep":{"deep":[1,2,3]},"stepHistory":[{"id":1,"name":"a"}]}`, string(out))

	existing := json.RawMessage(`{"stepHistory":[],"x":1}`)
	out, err = EnsureEmbeddedStepHistory(existing, steps)
	require.NoError(t, err)
	assert.Equal(t, string(existing), string(out))

	out, err = EnsureEmbeddedStepHistory(nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stepHistory":[]}`, string(out))
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-06-01T10:11:12Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", d.String())

	d, err = ParseDate("2024-06-01T10:11:12.123456")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", d.String())

	_, err = ParseDate("June 1st")
	assert.Error(t, err)

	b, err := json.Marshal(NewDate(time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-02"`, string(b))

	var scanned Date
	require.NoError(t, scanned.Scan(time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-05-06", scanned.String())
}

func TestTrack(t *testing.T) {
	assert.Equal(t, TrackClaim, ParseTrack("claim"))
	assert.Equal(t, TrackPolicy, ParseTrack(""))
	assert.Equal(t, TrackPolicy, ParseTrack("policy"))
	assert.Equal(t, "claim", TrackClaim.String())
}

func TestApplication_Steps(t *testing.T) {
	app := &Application{
		StepHistory: json.RawMessage(`[]`),
		AgentData:   json.RawMessage(`{"stepHistory":[{"id":1,"name":"kyc"}]}`),
	}
	steps, embedded, err := app.Steps()
	require.NoError(t, err)
	assert.True(t, embedded)
	require.Len(t, steps, 1)
	assert.Equal(t, "kyc", *steps[0].Name)

	app.StepHistory = json.RawMessage(`[{"id":2,"name":"score"}]`)
	steps, embedded, err = app.Steps()
	require.NoError(t, err)
	assert.False(t, embedded)
	assert.Equal(t, "score", *steps[0].Name)

	steps, embedded, err = (&Application{}).Steps()
	require.NoError(t, err)
	assert.False(t, embedded)
	assert.Empty(t, steps)
}

func TestSetEmbeddedStepHistory(t *testing.T) {
	out, err := SetEmbeddedStepHistory(json.RawMessage(`{"stepHistory":[],"other":1}`), []Step{{Name: StringPtr("a")}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stepHistory":[{"name":"a"}],"other":1}`, string(out))
}
