package blueprint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PublishRequisitionTopic is the topic hash of the publish event.
func PublishRequisitionTopic() common.Hash {
	return tractorABI.Events["PublishRequisition"].ID
}

// CancelBlueprintTopic is the topic hash of the cancel event.
func CancelBlueprintTopic() common.Hash {
	return tractorABI.Events["CancelBlueprint"].ID
}

// ParsePublishLog decodes a raw PublishRequisition log into the one
// normalized Requisition shape. All event normalization happens here, at the
// wire boundary; callers never see raw topics or data.
func ParsePublishLog(log types.Log) (Requisition, error) {
	if len(log.Topics) == 0 || log.Topics[0] != PublishRequisitionTopic() {
		return Requisition{}, fmt.Errorf("log is not a PublishRequisition event")
	}

	var event struct {
		Requisition wireRequisition
	}
	if err := tractorABI.UnpackIntoInterface(&event, "PublishRequisition", log.Data); err != nil {
		return Requisition{}, fmt.Errorf("unpack PublishRequisition: %w", err)
	}

	wire := event.Requisition
	req := Requisition{
		Blueprint: Blueprint{
			Publisher:           wire.Blueprint.Publisher,
			Data:                wire.Blueprint.Data,
			OperatorPasteInstrs: wire.Blueprint.OperatorPasteInstrs,
			MaxNonce:            wire.Blueprint.MaxNonce,
			StartTime:           wire.Blueprint.StartTime,
			EndTime:             wire.Blueprint.EndTime,
		},
		BlueprintHash: common.Hash(wire.BlueprintHash),
		Signature:     wire.Signature,
	}

	if req.Blueprint.StartTime == nil || req.Blueprint.EndTime == nil || req.Blueprint.MaxNonce == nil {
		return Requisition{}, fmt.Errorf("PublishRequisition event missing blueprint fields")
	}
	return req, nil
}

// ParseCancelLog decodes a raw CancelBlueprint log into the referenced hash.
func ParseCancelLog(log types.Log) (common.Hash, error) {
	if len(log.Topics) == 0 || log.Topics[0] != CancelBlueprintTopic() {
		return common.Hash{}, fmt.Errorf("log is not a CancelBlueprint event")
	}

	var event struct {
		BlueprintHash [32]byte
	}
	if err := tractorABI.UnpackIntoInterface(&event, "CancelBlueprint", log.Data); err != nil {
		return common.Hash{}, fmt.Errorf("unpack CancelBlueprint: %w", err)
	}
	return common.Hash(event.BlueprintHash), nil
}

// PackTractor builds calldata for the execution entry point
// tractor(requisition, operatorData).
func PackTractor(req Requisition, operatorData []byte) ([]byte, error) {
	if operatorData == nil {
		operatorData = []byte{}
	}
	wire := wireRequisition{
		Blueprint: wireBlueprint{
			Publisher:           req.Blueprint.Publisher,
			Data:                req.Blueprint.Data,
			OperatorPasteInstrs: req.Blueprint.OperatorPasteInstrs,
			MaxNonce:            orZero(req.Blueprint.MaxNonce),
			StartTime:           orZero(req.Blueprint.StartTime),
			EndTime:             orZero(req.Blueprint.EndTime),
		},
		BlueprintHash: req.BlueprintHash,
		Signature:     req.Signature,
	}
	if wire.Blueprint.Data == nil {
		wire.Blueprint.Data = []byte{}
	}
	if wire.Blueprint.OperatorPasteInstrs == nil {
		wire.Blueprint.OperatorPasteInstrs = [][32]byte{}
	}
	if wire.Signature == nil {
		wire.Signature = []byte{}
	}

	data, err := tractorABI.Pack("tractor", wire, operatorData)
	if err != nil {
		return nil, fmt.Errorf("pack tractor: %w", err)
	}
	return data, nil
}

// PackPublishEvent ABI-encodes a requisition the way the facet emits it.
// Only tests use this to fabricate logs.
func PackPublishEvent(req Requisition) ([]byte, error) {
	wire := wireRequisition{
		Blueprint: wireBlueprint{
			Publisher:           req.Blueprint.Publisher,
			Data:                req.Blueprint.Data,
			OperatorPasteInstrs: req.Blueprint.OperatorPasteInstrs,
			MaxNonce:            orZero(req.Blueprint.MaxNonce),
			StartTime:           orZero(req.Blueprint.StartTime),
			EndTime:             orZero(req.Blueprint.EndTime),
		},
		BlueprintHash: req.BlueprintHash,
		Signature:     req.Signature,
	}
	if wire.Blueprint.Data == nil {
		wire.Blueprint.Data = []byte{}
	}
	if wire.Blueprint.OperatorPasteInstrs == nil {
		wire.Blueprint.OperatorPasteInstrs = [][32]byte{}
	}
	if wire.Signature == nil {
		wire.Signature = []byte{}
	}
	return tractorABI.Events["PublishRequisition"].Inputs.Pack(wire)
}

// PackCancelEvent ABI-encodes a cancel event body. Only tests use this.
func PackCancelEvent(hash common.Hash) ([]byte, error) {
	return tractorABI.Events["CancelBlueprint"].Inputs.Pack([32]byte(hash))
}
