package mqtt

import "fmt"

// TopicPrefix is the base of every fingerprint topic.
//
// Topic hierarchy:
//
//	fingerprint/service/{Operation}/request              operation calls
//	fingerprint/service/{Operation}/response/{reqID}     immediate replies
//	fingerprint/event/{Operation}                        completion events
//	fingerprint/state/{VariableName}                     retained variables
const TopicPrefix = "fingerprint"

// Topics provides builders for fingerprint MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.ServiceRequest("AddPart")
//	// Returns: "fingerprint/service/AddPart/request"
type Topics struct{}

// ServiceRequest returns the topic on which calls to an operation arrive.
//
// Example: fingerprint/service/AddPart/request
func (Topics) ServiceRequest(operation string) string {
	return fmt.Sprintf("%s/service/%s/request", TopicPrefix, operation)
}

// ServiceResponse returns the topic for the immediate reply to one request.
//
// Example: fingerprint/service/AddPart/response/req-abc123
func (Topics) ServiceResponse(operation, requestID string) string {
	return fmt.Sprintf("%s/service/%s/response/%s", TopicPrefix, operation, requestID)
}

// Event returns the topic carrying completion events for an operation.
//
// Example: fingerprint/event/AddPart
func (Topics) Event(operation string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, operation)
}

// StateVariable returns the retained topic of one protocol variable.
//
// Example: fingerprint/state/RunState
func (Topics) StateVariable(name string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, name)
}

// SystemStatus returns the retained service availability topic, used for
// the online announcement and the Last Will message.
//
// Example: fingerprint/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllServiceRequests returns a pattern matching every operation request.
//
// Pattern: fingerprint/service/+/request
func (Topics) AllServiceRequests() string {
	return fmt.Sprintf("%s/service/+/request", TopicPrefix)
}

// AllEvents returns a pattern matching every completion event.
//
// Pattern: fingerprint/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// AllStateVariables returns a pattern matching every state variable.
//
// Pattern: fingerprint/state/+
func (Topics) AllStateVariables() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllTopics returns a pattern matching all fingerprint topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: fingerprint/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
