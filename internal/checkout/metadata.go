package checkout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tipflow-backend/pkg/enums"
)

// MetadataVersion tags the session metadata schema. The webhook side refuses
// nothing on version mismatch today but logs it, so the schema can evolve
// without stranding in-flight sessions.
const MetadataVersion = "1"

const (
	metaKeyVersion      = "tf_version"
	metaKeyTenantID     = "tenant_id"
	metaKeyTipID        = "tip_id"
	metaKeyKind         = "kind"
	metaKeyEmployeeID   = "employee_id"
	metaKeyEmployeeName = "employee_name"
	metaKeyStoreName    = "store_name"
	metaKeyFeeApplied   = "fee_applied"
)

// SessionMetadata is the message-passing contract between intent creation and
// webhook confirmation. Metadata is the only channel the asynchronous webhook
// can use to recover context, so every field it needs is embedded here,
// including denormalized display names.
type SessionMetadata struct {
	Version      string
	TenantID     uuid.UUID
	TipID        string
	Kind         enums.CheckoutKind
	EmployeeID   *uuid.UUID
	EmployeeName string
	StoreName    string
	FeeApplied   int64
}

// ToMap serializes the metadata for the provider session.
func (m SessionMetadata) ToMap() map[string]string {
	out := map[string]string{
		metaKeyVersion:  MetadataVersion,
		metaKeyTenantID: m.TenantID.String(),
		metaKeyKind:     string(m.Kind),
	}
	if m.TipID != "" {
		out[metaKeyTipID] = m.TipID
	}
	if m.EmployeeID != nil && *m.EmployeeID != uuid.Nil {
		out[metaKeyEmployeeID] = m.EmployeeID.String()
	}
	if m.EmployeeName != "" {
		out[metaKeyEmployeeName] = m.EmployeeName
	}
	if m.StoreName != "" {
		out[metaKeyStoreName] = m.StoreName
	}
	if m.FeeApplied > 0 {
		out[metaKeyFeeApplied] = fmt.Sprintf("%d", m.FeeApplied)
	}
	return out
}

// ParseMetadata validates the raw provider metadata. A missing or malformed
// tenant id is the one hard failure; everything else degrades to zero values.
func ParseMetadata(raw map[string]string) (SessionMetadata, error) {
	meta := SessionMetadata{
		Version:      strings.TrimSpace(raw[metaKeyVersion]),
		TipID:        strings.TrimSpace(raw[metaKeyTipID]),
		Kind:         enums.CheckoutKind(strings.TrimSpace(raw[metaKeyKind])),
		EmployeeName: strings.TrimSpace(raw[metaKeyEmployeeName]),
		StoreName:    strings.TrimSpace(raw[metaKeyStoreName]),
	}

	tenantRaw := strings.TrimSpace(raw[metaKeyTenantID])
	if tenantRaw == "" {
		return meta, fmt.Errorf("tenant_id missing from session metadata")
	}
	tenantID, err := uuid.Parse(tenantRaw)
	if err != nil {
		return meta, fmt.Errorf("invalid tenant_id in session metadata: %w", err)
	}
	meta.TenantID = tenantID

	if employeeRaw := strings.TrimSpace(raw[metaKeyEmployeeID]); employeeRaw != "" {
		if employeeID, err := uuid.Parse(employeeRaw); err == nil {
			meta.EmployeeID = &employeeID
		}
	}
	if feeRaw := strings.TrimSpace(raw[metaKeyFeeApplied]); feeRaw != "" {
		var fee int64
		if _, err := fmt.Sscanf(feeRaw, "%d", &fee); err == nil {
			meta.FeeApplied = fee
		}
	}
	return meta, nil
}
