package batchjob

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3control"
	"gopkg.in/yaml.v3"
)

const (
	ManifestFormatCSV = "S3BatchOperations_CSV_20180820"
	ReportFormatCSV   = "Report_CSV_20180820"
	ReportScopeAll    = "AllTasks"
	DefaultPriority   = 10
)

// JobSpec describes one batch job. Field names follow the CreateJob API so
// existing job files load unchanged.
type JobSpec struct {
	AccountId            string    `yaml:"AccountId" json:"AccountId,omitempty"`
	ConfirmationRequired *bool     `yaml:"ConfirmationRequired" json:"ConfirmationRequired,omitempty"`
	Description          string    `yaml:"Description" json:"Description,omitempty"`
	Priority             *int32    `yaml:"Priority" json:"Priority,omitempty"`
	ClientRequestToken   string    `yaml:"ClientRequestToken" json:"ClientRequestToken,omitempty"`
	Operation            Operation `yaml:"Operation" json:"Operation"`
	Report               Report    `yaml:"Report" json:"Report"`
	Manifest             Manifest  `yaml:"Manifest" json:"Manifest"`
	RoleArn              string    `yaml:"RoleArn" json:"RoleArn,omitempty"`
	Tags                 []Tag     `yaml:"Tags" json:"Tags,omitempty"`
}

type Operation struct {
	LambdaInvoke LambdaInvoke `yaml:"LambdaInvoke" json:"LambdaInvoke"`
}

type LambdaInvoke struct {
	FunctionArn string `yaml:"FunctionArn" json:"FunctionArn"`
}

type Report struct {
	Bucket      string `yaml:"Bucket" json:"Bucket,omitempty"`
	Format      string `yaml:"Format" json:"Format,omitempty"`
	Enabled     bool   `yaml:"Enabled" json:"Enabled"`
	Prefix      string `yaml:"Prefix" json:"Prefix,omitempty"`
	ReportScope string `yaml:"ReportScope" json:"ReportScope,omitempty"`
}

type Manifest struct {
	Spec     ManifestSpec     `yaml:"Spec" json:"Spec"`
	Location ManifestLocation `yaml:"Location" json:"Location"`
}

type ManifestSpec struct {
	Format string   `yaml:"Format" json:"Format"`
	Fields []string `yaml:"Fields" json:"Fields,omitempty"`
}

type ManifestLocation struct {
	ObjectArn       string `yaml:"ObjectArn" json:"ObjectArn"`
	ObjectVersionId string `yaml:"ObjectVersionId" json:"ObjectVersionId,omitempty"`
	ETag            string `yaml:"ETag" json:"ETag,omitempty"`
}

type Tag struct {
	Key   string `yaml:"Key" json:"Key"`
	Value string `yaml:"Value" json:"Value"`
}

// LoadJobSpecs reads a YAML or JSON file holding a list of jobs or a
// single job.
func LoadJobSpecs(path string) ([]JobSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return ParseJobSpecs(raw)
}

func ParseJobSpecs(raw []byte) ([]JobSpec, error) {
	var specs []JobSpec
	if err := yaml.Unmarshal(raw, &specs); err == nil {
		return specs, nil
	}
	var one JobSpec
	if err := yaml.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}
	return []JobSpec{one}, nil
}

// withDefaults fills the fields job files usually leave out. It does not
// touch AccountId, ClientRequestToken or the manifest ETag.
func (s JobSpec) withDefaults() JobSpec {
	if s.ConfirmationRequired == nil {
		t := true
		s.ConfirmationRequired = &t
	}
	if s.Priority == nil {
		p := int32(DefaultPriority)
		s.Priority = &p
	}
	if s.Manifest.Spec.Format == "" {
		s.Manifest.Spec.Format = ManifestFormatCSV
	}
	if len(s.Manifest.Spec.Fields) == 0 {
		s.Manifest.Spec.Fields = []string{"Bucket", "Key"}
	}
	if s.Report.Format == "" {
		s.Report.Format = ReportFormatCSV
	}
	if s.Report.ReportScope == "" {
		s.Report.ReportScope = ReportScopeAll
	}
	return s
}

func (s JobSpec) validate() error {
	switch {
	case s.Operation.LambdaInvoke.FunctionArn == "":
		return fmt.Errorf("job %q: Operation.LambdaInvoke.FunctionArn is required", s.Description)
	case s.RoleArn == "":
		return fmt.Errorf("job %q: RoleArn is required", s.Description)
	case s.Manifest.Location.ObjectArn == "":
		return fmt.Errorf("job %q: Manifest.Location.ObjectArn is required", s.Description)
	case s.Report.Enabled && s.Report.Bucket == "":
		return fmt.Errorf("job %q: Report.Bucket is required when the report is enabled", s.Description)
	}
	return nil
}

// Input converts the spec into a CreateJob request. The API shapes share
// field names with JobSpec, so the conversion goes through JSON.
func (s JobSpec) Input() (*s3control.CreateJobInput, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	var in s3control.CreateJobInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("build CreateJob input: %w", err)
	}
	return &in, nil
}
