package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	model "github.com/Itish41/FranchiseOps/models"
)

var (
	ErrUnknownStepType = errors.New("unknown step type")
	ErrFieldNotAllowed = errors.New("field is not in the lead allow-list")
)

// DeliveryMode is reported on message-like steps. Delivery is an external collaborator.
const DeliveryMode = "simulated"

// MutableLeadFields maps the field names step configs may write to lead columns.
var MutableLeadFields = map[string]string{
	"pipeline_stage": "pipeline_stage",
	"status":         "status",
	"notes":          "notes",
	"assigned_to":    "assigned_to",
	"priority":       "priority",
}

// FlowAction tells the processor where an enrollment goes after a step.
type FlowAction string

const (
	FlowContinue FlowAction = "continue"
	FlowEnd      FlowAction = "end"
	FlowGoto     FlowAction = "goto"
)

type FlowDecision struct {
	Action FlowAction `json:"action"`
	// Target is the step order to jump to when Action is FlowGoto.
	Target int `json:"target,omitempty"`
}

// LeadMutation is a single allow-listed write to a lead.
type LeadMutation struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// StepResult describes what a step did.
type StepResult struct {
	Type     model.StepType         `json:"type"`
	Summary  string                 `json:"summary"`
	Details  map[string]interface{} `json:"details"`
	Mutation *LeadMutation          `json:"mutation,omitempty"`
	Flow     FlowDecision           `json:"flow"`
}

// stepConfig is the union of all step config keys.
type stepConfig struct {
	Channel    string      `json:"channel"`
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
	Stage      string      `json:"stage"`
	Field      string      `json:"field"`
	Value      interface{} `json:"value"`
	Recipients []string    `json:"recipients"`
	Message    string      `json:"message"`
	URL        string      `json:"url"`
	Method     string      `json:"method"`
	Operator   string      `json:"operator"`
	OnFalse    string      `json:"on_false"`
	TargetStep int         `json:"target_step"`
}

// conditionFields are readable by condition steps in addition to the mutable fields.
var conditionFields = map[string]bool{"source": true, "email": true, "phone": true}

type StepCatalog struct{}

func NewStepCatalog() *StepCatalog {
	return &StepCatalog{}
}

// Execute turns a step and its config into a StepResult. It never writes
// anything; mutations are returned for the caller to apply.
func (c *StepCatalog) Execute(step model.AutomationStep, lead model.Lead, location *model.Location) (StepResult, error) {
	var cfg stepConfig
	if len(step.Config) > 0 {
		if err := json.Unmarshal(step.Config, &cfg); err != nil {
			return StepResult{}, fmt.Errorf("parse %s config: %w", step.StepType, err)
		}
	}
	locationName := ""
	if location != nil {
		locationName = location.Name
	}

	res := StepResult{
		Type:    step.StepType,
		Details: map[string]interface{}{},
		Flow:    FlowDecision{Action: FlowContinue},
	}

	switch step.StepType {
	case model.StepSendMessage:
		channel := strings.ToLower(cfg.Channel)
		if channel == "" {
			channel = "sms"
		}
		if channel != "sms" && channel != "email" {
			return StepResult{}, fmt.Errorf("send_message: unsupported channel %q", cfg.Channel)
		}
		if strings.TrimSpace(cfg.Body) == "" {
			return StepResult{}, errors.New("send_message: body is required")
		}
		body := RenderMergeTags(cfg.Body, lead, locationName)
		res.Details["channel"] = channel
		res.Details["body"] = body
		res.Details["mode"] = DeliveryMode
		if channel == "email" {
			res.Details["subject"] = RenderMergeTags(cfg.Subject, lead, locationName)
			res.Details["to"] = lead.Email
		} else {
			res.Details["to"] = lead.Phone
		}
		res.Summary = fmt.Sprintf("Sent %s to {{full_name}}", channel)

	case model.StepWait:
		res.Details["delay_seconds"] = step.DelaySeconds
		res.Summary = fmt.Sprintf("Waited %ds", step.DelaySeconds)

	case model.StepChangeStage:
		if cfg.Stage == "" {
			return StepResult{}, errors.New("change_stage: stage is required")
		}
		res.Mutation = &LeadMutation{Column: MutableLeadFields["pipeline_stage"], Value: cfg.Stage}
		res.Details["from"] = lead.PipelineStage
		res.Details["to"] = cfg.Stage
		res.Summary = fmt.Sprintf("Moved {{full_name}} to stage %s", cfg.Stage)

	case model.StepUpdateField:
		column, ok := MutableLeadFields[cfg.Field]
		if !ok {
			return StepResult{}, fmt.Errorf("update_field %q: %w", cfg.Field, ErrFieldNotAllowed)
		}
		if cfg.Value == nil {
			return StepResult{}, fmt.Errorf("update_field %s: value is required", cfg.Field)
		}
		value := RenderMergeTags(stringValue(cfg.Value), lead, locationName)
		res.Mutation = &LeadMutation{Column: column, Value: value}
		res.Details["field"] = cfg.Field
		res.Details["value"] = value
		res.Summary = fmt.Sprintf("Set %s on {{full_name}}", cfg.Field)

	case model.StepNotify:
		if strings.TrimSpace(cfg.Message) == "" {
			return StepResult{}, errors.New("notify: message is required")
		}
		res.Details["recipients"] = cfg.Recipients
		res.Details["message"] = RenderMergeTags(cfg.Message, lead, locationName)
		res.Details["mode"] = DeliveryMode
		res.Summary = fmt.Sprintf("Notified %d recipient(s) about {{full_name}}", len(cfg.Recipients))

	case model.StepWebhook:
		if cfg.URL == "" {
			return StepResult{}, errors.New("webhook: url is required")
		}
		method := strings.ToUpper(cfg.Method)
		if method == "" {
			method = "POST"
		}
		res.Details["method"] = method
		res.Details["url"] = cfg.URL
		res.Details["mode"] = DeliveryMode
		res.Summary = fmt.Sprintf("Webhook %s %s", method, cfg.URL)

	case model.StepCondition:
		flow, matched, err := evaluateCondition(cfg, step.StepOrder, lead)
		if err != nil {
			return StepResult{}, err
		}
		res.Flow = flow
		res.Details["field"] = cfg.Field
		res.Details["operator"] = cfg.Operator
		res.Details["matched"] = matched
		res.Summary = fmt.Sprintf("Condition %s %s: %t", cfg.Field, cfg.Operator, matched)

	default:
		return StepResult{}, fmt.Errorf("%w: %q", ErrUnknownStepType, step.StepType)
	}

	res.Summary = RenderMergeTags(res.Summary, lead, locationName)
	return res, nil
}

func evaluateCondition(cfg stepConfig, currentOrder int, lead model.Lead) (FlowDecision, bool, error) {
	actual, ok := leadFieldValue(lead, cfg.Field)
	if !ok {
		return FlowDecision{}, false, fmt.Errorf("condition %q: %w", cfg.Field, ErrFieldNotAllowed)
	}
	expected := stringValue(cfg.Value)

	var matched bool
	switch cfg.Operator {
	case "equals":
		matched = strings.EqualFold(actual, expected)
	case "not_equals":
		matched = !strings.EqualFold(actual, expected)
	case "contains":
		matched = strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case "is_empty":
		matched = strings.TrimSpace(actual) == ""
	case "not_empty":
		matched = strings.TrimSpace(actual) != ""
	default:
		return FlowDecision{}, false, fmt.Errorf("condition: unsupported operator %q", cfg.Operator)
	}
	if matched {
		return FlowDecision{Action: FlowContinue}, true, nil
	}

	switch FlowAction(cfg.OnFalse) {
	case "", FlowEnd:
		return FlowDecision{Action: FlowEnd}, false, nil
	case FlowContinue:
		return FlowDecision{Action: FlowContinue}, false, nil
	case FlowGoto:
		if cfg.TargetStep <= currentOrder {
			return FlowDecision{}, false, fmt.Errorf("condition: target_step %d must be after step %d", cfg.TargetStep, currentOrder)
		}
		return FlowDecision{Action: FlowGoto, Target: cfg.TargetStep}, false, nil
	default:
		return FlowDecision{}, false, fmt.Errorf("condition: unsupported on_false %q", cfg.OnFalse)
	}
}

func leadFieldValue(lead model.Lead, field string) (string, bool) {
	if _, ok := MutableLeadFields[field]; !ok && !conditionFields[field] {
		return "", false
	}
	switch field {
	case "pipeline_stage":
		return lead.PipelineStage, true
	case "status":
		return lead.Status, true
	case "notes":
		return lead.Notes, true
	case "assigned_to":
		return lead.AssignedTo, true
	case "priority":
		return lead.Priority, true
	case "source":
		return lead.Source, true
	case "email":
		return lead.Email, true
	case "phone":
		return lead.Phone, true
	}
	return "", false
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
