package sdk

import (
	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// SendOptions carries the host settings a sendRequest call is made with.
type SendOptions struct {
	Settings           types.Settings
	ClientCertificates []types.ClientCertificate
}

// SendOptionsFor derives the options for requests sent from a script, taking
// the script's proxy and certificate edits into account.
func SendOptionsFor(o *InsomniaObject) SendOptions {
	return SendOptions{
		Settings:           MergeSettings(o.settings, o.Request),
		ClientCertificates: MergeClientCertificates(o.clientCertificates, o.Request),
	}
}
