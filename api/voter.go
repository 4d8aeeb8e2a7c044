package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quantegrity/quantegrity/types"
)

// registerVoter registers a new voter and returns the enrollment secrets
// POST /voters
func (a *API) registerVoter(w http.ResponseWriter, r *http.Request) {
	info := types.VoterInfo{}
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	id, enrollment, err := a.authority.RegisterVoter(info)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &RegisterResponse{
		VoterID:   id,
		DeviceKey: enrollment.DeviceKey,
		Biometric: enrollment.Biometric,
	})
}

// voterStatus returns the protocol status of a voter
// GET /voters/{voterId}
func (a *API) voterStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamHex(w, r, VoterURLParam)
	if !ok {
		return
	}
	status, err := a.authority.VoterStatus(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &VoterStatusResponse{VoterID: id, Status: status})
}

// deviceChallenge issues a device verification OTP encrypted under Q_K2
// POST /voters/{voterId}/device
func (a *API) deviceChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamHex(w, r, VoterURLParam)
	if !ok {
		return
	}
	encOTP, err := a.authority.RequestDeviceVerification(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &DeviceChallenge{EncryptedOTP: encOTP})
}

// deviceVerify checks the OTP echoed back by the voter's device
// POST /voters/{voterId}/device/verify
func (a *API) deviceVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamHex(w, r, VoterURLParam)
	if !ok {
		return
	}
	resp := &DeviceResponse{}
	if err := json.NewDecoder(r.Body).Decode(resp); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.authority.ApproveDeviceVerification(id, resp.OTP); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}

// authenticateVoter verifies the biometric sample and derives AQ_K1
// POST /voters/{voterId}/authenticate
func (a *API) authenticateVoter(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamHex(w, r, VoterURLParam)
	if !ok {
		return
	}
	req := &AuthRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.authority.Authenticate(id, req.Biometric); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}

// urlParamHex decodes a hex URL parameter, writing the API error itself when
// the parameter does not parse.
func urlParamHex(w http.ResponseWriter, r *http.Request, name string) (types.HexBytes, bool) {
	param := chi.URLParam(r, name)
	value := types.HexStringToHexBytes(param)
	if value == nil {
		ErrMalformedParam.Withf("%s is not valid hex", name).Write(w)
		return nil, false
	}
	return value, true
}
