package transport

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/profile"
	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
)

// #region field-names
const (
	fieldDetectorID   = "detector_id"
	fieldEntityValue  = "entity_value"
	fieldFacets       = "profiles"
	fieldTotalUpdates = "total_updates"
	fieldIsActive     = "is_active"
	fieldLastActiveMs = "last_active_ms"
	fieldModel        = "model"
	fieldModelID      = "model_id"
	fieldNodeID       = "node_id"
	fieldModelSize    = "model_size_in_bytes"
)
// #endregion field-names

// #region request-codec
func encodeRequest(req snapshot.Request) (*structpb.Struct, error) {
	facets := make([]any, 0, req.Facets.Len())
	for _, f := range profile.AllFacets {
		if req.Facets.Has(f) {
			facets = append(facets, string(f))
		}
	}
	return structpb.NewStruct(map[string]any{
		fieldDetectorID:  req.DetectorID,
		fieldEntityValue: req.EntityValue,
		fieldFacets:      facets,
	})
}

func decodeRequest(in *structpb.Struct) (snapshot.Request, error) {
	fields := in.GetFields()
	req := snapshot.Request{
		DetectorID:  fields[fieldDetectorID].GetStringValue(),
		EntityValue: fields[fieldEntityValue].GetStringValue(),
		Facets:      profile.FacetSet{},
	}
	if req.DetectorID == "" || req.EntityValue == "" {
		return snapshot.Request{}, errkind.New(errkind.InvalidRequest, "detector id and entity value are required")
	}
	for _, v := range fields[fieldFacets].GetListValue().GetValues() {
		f, err := profile.ParseFacet(v.GetStringValue())
		if err != nil {
			return snapshot.Request{}, errkind.Wrap(errkind.InvalidRequest, err, "decode request")
		}
		req.Facets[f] = struct{}{}
	}
	return req, nil
}
// #endregion request-codec

// #region response-codec
func encodeSnapshot(s snapshot.Snapshot) (*structpb.Struct, error) {
	m := map[string]any{
		fieldTotalUpdates: s.TotalUpdates,
	}
	if s.IsActive != nil {
		m[fieldIsActive] = *s.IsActive
	}
	if s.LastActiveMs != nil {
		m[fieldLastActiveMs] = *s.LastActiveMs
	}
	if s.ModelProfile != nil {
		m[fieldModel] = map[string]any{
			fieldModelID:   s.ModelProfile.ModelID,
			fieldNodeID:    s.ModelProfile.NodeID,
			fieldModelSize: s.ModelProfile.SizeBytes,
		}
	}
	return structpb.NewStruct(m)
}

func decodeSnapshot(in *structpb.Struct) (snapshot.Snapshot, error) {
	fields := in.GetFields()
	var out snapshot.Snapshot

	total := fields[fieldTotalUpdates].GetNumberValue()
	if total < 0 {
		return snapshot.Snapshot{}, errkind.Newf(errkind.Decode, "negative total updates %v", total)
	}
	out.TotalUpdates = int64(total)

	if v, ok := fields[fieldIsActive]; ok {
		b, isBool := v.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return snapshot.Snapshot{}, errkind.New(errkind.Decode, "is_active is not a boolean")
		}
		active := b.BoolValue
		out.IsActive = &active
	}
	if v, ok := fields[fieldLastActiveMs]; ok {
		ms := int64(v.GetNumberValue())
		out.LastActiveMs = &ms
	}
	if v, ok := fields[fieldModel]; ok {
		mf := v.GetStructValue().GetFields()
		if mf == nil {
			return snapshot.Snapshot{}, errkind.New(errkind.Decode, "model is not an object")
		}
		out.ModelProfile = &profile.ModelProfile{
			ModelID:   mf[fieldModelID].GetStringValue(),
			NodeID:    mf[fieldNodeID].GetStringValue(),
			SizeBytes: int64(mf[fieldModelSize].GetNumberValue()),
		}
	}
	return out, nil
}
// #endregion response-codec

// #region error-codes
// toStatus carries the error kind across the wire as a gRPC status code.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch errkind.KindOf(err) {
	case errkind.InvalidRequest:
		code = codes.InvalidArgument
	case errkind.NotFound:
		code = codes.NotFound
	case errkind.IndexNotFound:
		code = codes.FailedPrecondition
	case errkind.Decode:
		code = codes.DataLoss
	case errkind.Transport:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// fromStatus recovers the error kind from a gRPC status code.
func fromStatus(err error, peer string) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return errkind.Wrap(errkind.Transport, err, "snapshot rpc to "+peer)
	}
	var kind errkind.Kind
	switch st.Code() {
	case codes.InvalidArgument:
		kind = errkind.InvalidRequest
	case codes.NotFound:
		kind = errkind.NotFound
	case codes.FailedPrecondition:
		kind = errkind.IndexNotFound
	case codes.DataLoss:
		kind = errkind.Decode
	case codes.Internal:
		kind = errkind.Internal
	default:
		kind = errkind.Transport
	}
	return errkind.Wrap(kind, errors.New(st.Message()), fmt.Sprintf("snapshot rpc to %s (%s)", peer, st.Code()))
}
// #endregion error-codes
