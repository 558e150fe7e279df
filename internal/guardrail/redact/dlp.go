package redact

import (
	"context"
	"fmt"
	"strings"
	"time"

	dlp "cloud.google.com/go/dlp/apiv2"
	"cloud.google.com/go/dlp/apiv2/dlppb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// dlpEntities is the entity-type allowlist sent to the inspection API.
var dlpEntities = []string{
	TypeEmail,
	TypePhone,
	TypePerson,
	TypeCreditCard,
	TypeSSN,
	TypeIPAddress,
	TypeLocation,
}

// dlpInfoTypes maps entity types to the Cloud DLP built-in infoType
// names. The API rejects a request naming an unknown infoType, so these
// must match the DLP catalog exactly — only email, phone, IP, and
// location share names with the labels the rest of the pipeline reports.
var dlpInfoTypes = map[string]string{
	TypeEmail:      "EMAIL_ADDRESS",
	TypePhone:      "PHONE_NUMBER",
	TypePerson:     "PERSON_NAME",
	TypeCreditCard: "CREDIT_CARD_NUMBER",
	TypeSSN:        "US_SOCIAL_SECURITY_NUMBER",
	TypeIPAddress:  "IP_ADDRESS",
	TypeLocation:   "LOCATION",
}

// dlpEntityTypes is the reverse of dlpInfoTypes: transformation
// summaries come back with DLP names and are translated so pii_types
// reads the same regardless of backend.
var dlpEntityTypes = func() map[string]string {
	m := make(map[string]string, len(dlpInfoTypes))
	for entity, info := range dlpInfoTypes {
		m[info] = entity
	}
	return m
}()

// perTypeLabels maps entity types to their replacement tokens. Types not
// listed fall back to the generic label.
var perTypeLabels = map[string]string{
	TypeEmail:  labelEmail,
	TypePhone:  labelPhone,
	TypePerson: labelPerson,
}

// CloudDLP redacts via the Cloud DLP de-identification API. Remote
// counterpart to Local for deployments that want managed detection
// quality over regex precision.
type CloudDLP struct {
	client  *dlp.Client
	parent  string
	logger  *zap.Logger
	timeout time.Duration
}

// NewCloudDLP dials the DLP service. The client is built once and reused
// for the life of the process.
func NewCloudDLP(ctx context.Context, projectID string, logger *zap.Logger) (*CloudDLP, error) {
	client, err := dlp.NewClient(ctx,
		option.WithGRPCDialOption(grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		})),
	)
	if err != nil {
		return nil, fmt.Errorf("NewCloudDLP: %w", err)
	}
	return &CloudDLP{
		client:  client,
		parent:  fmt.Sprintf("projects/%s/locations/global", projectID),
		logger:  logger,
		timeout: 5 * time.Second,
	}, nil
}

func (c *CloudDLP) Redact(ctx context.Context, text string) (string, []string) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.DeidentifyContent(ctx, c.deidentifyRequest(text))
	if err != nil {
		c.logger.Warn("dlp redaction error, returning original text", zap.Error(err))
		return text, nil
	}

	types := entityTypesFromSummaries(resp.GetOverview().GetTransformationSummaries())
	if len(types) > 0 {
		c.logger.Info("pii redacted", zap.Strings("pii_types", types))
	}
	return resp.GetItem().GetValue(), types
}

// entityTypesFromSummaries translates DLP transformation summaries into
// the entity types reported in pii_types, each at most once. Names not
// in the mapping pass through as-is.
func entityTypesFromSummaries(summaries []*dlppb.TransformationSummary) []string {
	var types []string
	seen := make(map[string]bool)
	for _, summary := range summaries {
		name := summary.GetInfoType().GetName()
		if name == "" {
			continue
		}
		if entity := dlpEntityTypes[name]; entity != "" {
			name = entity
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		types = append(types, name)
	}
	return types
}

func (c *CloudDLP) deidentifyRequest(text string) *dlppb.DeidentifyContentRequest {
	infoTypes := make([]*dlppb.InfoType, 0, len(dlpEntities))
	for _, entity := range dlpEntities {
		infoTypes = append(infoTypes, &dlppb.InfoType{Name: dlpInfoTypes[entity]})
	}

	// One transformation per entity type so each gets its own label.
	transformations := make([]*dlppb.InfoTypeTransformations_InfoTypeTransformation, 0, len(dlpEntities))
	for _, entity := range dlpEntities {
		label := perTypeLabels[entity]
		if label == "" {
			label = labelGeneric
		}
		transformations = append(transformations, &dlppb.InfoTypeTransformations_InfoTypeTransformation{
			InfoTypes: []*dlppb.InfoType{{Name: dlpInfoTypes[entity]}},
			PrimitiveTransformation: &dlppb.PrimitiveTransformation{
				Transformation: &dlppb.PrimitiveTransformation_ReplaceConfig{
					ReplaceConfig: &dlppb.ReplaceValueConfig{
						NewValue: &dlppb.Value{
							Type: &dlppb.Value_StringValue{StringValue: label},
						},
					},
				},
			},
		})
	}

	return &dlppb.DeidentifyContentRequest{
		Parent: c.parent,
		InspectConfig: &dlppb.InspectConfig{
			InfoTypes: infoTypes,
		},
		DeidentifyConfig: &dlppb.DeidentifyConfig{
			Transformation: &dlppb.DeidentifyConfig_InfoTypeTransformations{
				InfoTypeTransformations: &dlppb.InfoTypeTransformations{
					Transformations: transformations,
				},
			},
		},
		Item: &dlppb.ContentItem{
			DataItem: &dlppb.ContentItem_Value{Value: text},
		},
	}
}

// Close shuts down the DLP connection.
func (c *CloudDLP) Close() error {
	return c.client.Close()
}
