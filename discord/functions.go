package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/mitchellh/mapstructure"
)

// Request is a blank interface for the command request definitions.
type Request interface{}

// BotFunctionI is the common interface for all bot command functions.
type BotFunctionI interface {
	GetName() string
	GetDescription() string
	GetRequestPrototype() Request
	// GetDefaultMemberPermissions returns the permission bits a member needs
	// to see the command, or nil for everyone.
	GetDefaultMemberPermissions() *int64
	// HandleInteraction decodes interaction data into a request struct and calls the handler.
	// It returns the response data that can be sent directly to Discord.
	HandleInteraction(data *discordgo.ApplicationCommandInteractionData) (*discordgo.InteractionResponseData, error)
}

// GenericBotFunction is a generic implementation of BotFunctionI.
type GenericBotFunction[T Request] struct {
	Name        string
	Description string
	// RequestPrototype is the zero value of T, used to generate command options.
	RequestPrototype T
	Handler          func(T) (*discordgo.InteractionResponseData, error)
	Permissions      *int64
}

func (bf *GenericBotFunction[T]) GetName() string {
	return bf.Name
}

func (bf *GenericBotFunction[T]) GetDescription() string {
	if bf.Description == "" {
		return "Auto-generated command for " + bf.Name
	}
	return bf.Description
}

func (bf *GenericBotFunction[T]) GetRequestPrototype() Request {
	return bf.RequestPrototype
}

func (bf *GenericBotFunction[T]) GetDefaultMemberPermissions() *int64 {
	return bf.Permissions
}

// HandleInteraction decodes the interaction options into T with mapstructure,
// applies tag defaults and invokes the handler.
func (bf *GenericBotFunction[T]) HandleInteraction(data *discordgo.ApplicationCommandInteractionData) (*discordgo.InteractionResponseData, error) {
	var req T

	optsMap := make(map[string]interface{})
	for _, opt := range data.Options {
		optsMap[opt.Name] = opt.Value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "discord",
		Result:           &req,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(optsMap); err != nil {
		return nil, err
	}

	if err := setDefaults(&req); err != nil {
		return nil, err
	}

	return bf.Handler(req)
}

// NewBotFunction creates a command handler whose options are generated from
// the fields of T. Fields use the "discord" struct tag:
//
//	discord:"name,optional,description:Some text,default:value"
//
// The first element is the option name, matching what mapstructure decodes.
//   - optional:    the option is not required.
//   - description: overrides the auto-generated option description.
//   - choices:     semicolon separated "value|Label" pairs.
//   - default:     value assigned when the option is not supplied.
func NewBotFunction[T Request](name, description string, handler func(T) (*discordgo.InteractionResponseData, error)) BotFunctionI {
	var reqPrototype T
	return &GenericBotFunction[T]{
		Name:             name,
		Description:      description,
		RequestPrototype: reqPrototype,
		Handler:          handler,
	}
}

// NewAdminBotFunction is NewBotFunction restricted to members with the
// Administrator permission by default.
func NewAdminBotFunction[T Request](name, description string, handler func(T) (*discordgo.InteractionResponseData, error)) BotFunctionI {
	perms := int64(discordgo.PermissionAdministrator)
	var reqPrototype T
	return &GenericBotFunction[T]{
		Name:             name,
		Description:      description,
		RequestPrototype: reqPrototype,
		Handler:          handler,
		Permissions:      &perms,
	}
}
