package engine

import (
	"candycheck/internal/identifier"
	"candycheck/internal/session"
)

// TrackRequest registers one identifier with the session.
type TrackRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name"`
	Kind      string `json:"kind,omitempty"`
	Location  string `json:"location,omitempty"`
}

// TrackResponse reports the registered identifier, or the rejection
// reason when the name was invalid. Rejections mutate nothing.
type TrackResponse struct {
	SessionID   string           `json:"session_id"`
	Accepted    bool             `json:"accepted"`
	Name        string           `json:"name,omitempty"`
	Style       identifier.Style `json:"style,omitempty"`
	Kind        identifier.Kind  `json:"kind,omitempty"`
	Occurrences int              `json:"occurrences,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// TrackIdentifier registers a name the caller is introducing.
func (e *Engine) TrackIdentifier(req TrackRequest) (*TrackResponse, error) {
	sess := e.sessions.GetOrCreate(req.SessionID)

	resp := &TrackResponse{SessionID: sess.Key}
	err := sess.Update(func(st *session.State) error {
		info, err := st.Registry.Track(req.Name, identifier.KindFromString(req.Kind), req.Location)
		if err != nil {
			resp.Reason = err.Error()
			return nil
		}
		resp.Accepted = true
		resp.Name = info.Name
		resp.Style = info.Style
		resp.Kind = info.Kind
		resp.Occurrences = info.Occurrences
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ConsistencyRequest asks whether a name matches the session's
// established conventions.
type ConsistencyRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Name      string `json:"name"`
}

// ConsistencyResponse wraps the registry verdict. Accepted is false
// only for invalid names.
type ConsistencyResponse struct {
	SessionID string `json:"session_id"`
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
	identifier.Result
}

// CheckConsistency is a read-only conventions check; it never records
// the name.
func (e *Engine) CheckConsistency(req ConsistencyRequest) (*ConsistencyResponse, error) {
	sess := e.sessions.GetOrCreate(req.SessionID)

	resp := &ConsistencyResponse{SessionID: sess.Key}
	err := sess.Update(func(st *session.State) error {
		res, err := st.Registry.CheckConsistency(req.Name)
		if err != nil {
			resp.Reason = err.Error()
			return nil
		}
		resp.Accepted = true
		resp.Result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListRequest asks for the session's tracked identifiers.
type ListRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// IdentifierSummary is one tracked name in a listing.
type IdentifierSummary struct {
	Name        string           `json:"name"`
	Style       identifier.Style `json:"style"`
	Kind        identifier.Kind  `json:"kind"`
	Occurrences int              `json:"occurrences"`
}

// ListResponse enumerates tracked identifiers in name order.
type ListResponse struct {
	SessionID   string              `json:"session_id"`
	Identifiers []IdentifierSummary `json:"identifiers"`
}

// ListIdentifiers reports everything the session has tracked so far.
func (e *Engine) ListIdentifiers(req ListRequest) (*ListResponse, error) {
	sess := e.sessions.GetOrCreate(req.SessionID)

	resp := &ListResponse{SessionID: sess.Key}
	err := sess.Update(func(st *session.State) error {
		for _, info := range st.Registry.List() {
			resp.Identifiers = append(resp.Identifiers, IdentifierSummary{
				Name:        info.Name,
				Style:       info.Style,
				Kind:        info.Kind,
				Occurrences: info.Occurrences,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
