package aws

import (
	"context"
	"testing"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "us-east-1" {
		t.Fatalf("expected default region 'us-east-1', got %s", cfg.Region)
	}
}

func TestLoadAWSConfig_ExplicitRegion(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), "eu-west-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "eu-west-1" {
		t.Fatalf("region mismatch, got %s", cfg.Region)
	}
}

func TestNewAWSClients_WithEndpointOverride(t *testing.T) {
	clients, err := NewAWSClients(context.Background(), ClientOptions{
		Region:   "us-east-1",
		Endpoint: "http://localhost:4566",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clients.DynamoDB == nil || clients.SQS == nil || clients.CloudWatch == nil {
		t.Fatalf("expected all clients to be constructed")
	}
	if got := clients.DynamoDB.Options().BaseEndpoint; got == nil || *got != "http://localhost:4566" {
		t.Fatalf("endpoint override not applied: %v", got)
	}
}
