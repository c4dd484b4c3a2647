package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// idempotent runs create and writes its result with status, honouring the
// Idempotency-Key header:
//   - same owner+key+route+body replays the stored response
//   - same owner+key+route with a different body is rejected (409)
//
// canon is the decoded request after normalization; its hash identifies the body.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, owner domain.SubjectID, route string, canon any, status int, create func() (any, error)) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key == "" || s.Idem == nil {
		resp, err := create()
		if err != nil {
			writeAppError(w, r, s.Log, err)
			return
		}
		writeJSON(w, status, resp)
		return
	}

	ctx := r.Context()
	bodyHash, err := hashBody(canon)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Owner:    owner,
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}
	if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	} else if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   s.now(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	} else if ok && rec.StatusCode == status && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	resp, err := create()
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	b = append(b, '\n')
	_ = s.Idem.Put(ctx, respFP, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        b,
		CreatedAt:   s.now(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
