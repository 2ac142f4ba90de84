package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: hook
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: phone
    type: NTFY
    ntfy:
      topic: /deals/
  - id: alerts
    type: sns
    sns:
      topic_arn: arn:aws:sns:eu-north-1:1:deals
      region: eu-north-1
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "phone" || enabled[1].ID != "alerts" {
		t.Fatalf("unexpected enabled set: %#v", enabled)
	}
	phone, _ := reg.ByID("phone")
	if phone.Type != TypeNtfy || phone.Ntfy.Topic != "deals" || phone.Ntfy.BaseURL != "https://ntfy.sh" {
		t.Fatalf("ntfy entry not normalized: %#v", phone.Ntfy)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs.test/q","region":"eu-north-1"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 1 {
		t.Fatalf("All = %#v", reg.All())
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	_, err := NewConfigRegistry([]PublisherConfig{
		{ID: "a", Type: TypeNtfy, Ntfy: &NtfyPublisherConfig{Topic: "x"}},
		{ID: "a", Type: TypeNtfy, Ntfy: &NtfyPublisherConfig{Topic: "y"}},
	})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  PublisherConfig
	}{
		{"missing http block", PublisherConfig{ID: "h1", Type: TypeHTTP}},
		{"missing ntfy topic", PublisherConfig{ID: "n1", Type: TypeNtfy, Ntfy: &NtfyPublisherConfig{}}},
		{"sns without region", PublisherConfig{ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "arn"}}},
		{"half credentials", PublisherConfig{ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{
			QueueURL: "u", Region: "r", Credentials: AWSCredentials{AccessKeyID: "AKIA"},
		}}},
		{"pubsub without topic", PublisherConfig{ID: "g1", Type: TypeGCPPubSub, GCPPubSub: &GCPQueueConfig{ProjectID: "p"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validatePublisherConfig(sanitizePublisherConfig(tc.cfg)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
