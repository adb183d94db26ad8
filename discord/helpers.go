package discord

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// parseDiscordTag splits a struct tag value (e.g. "server,optional,description:desc,default:foo")
// into the option name and a map of the remaining keys.
func parseDiscordTag(tag string) (string, map[string]string) {
	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	result := make(map[string]string)
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) == 2 {
			result[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		} else {
			result[part] = "true"
		}
	}
	return name, result
}

// parseChoices parses a choices string (e.g. "val1|Label1;val2|Label2").
func parseChoices(s string) []*discordgo.ApplicationCommandOptionChoice {
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		value, name, found := strings.Cut(pair, "|")
		if !found {
			name = value
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: value,
		})
	}
	return choices
}

// setDefaults fills zero-valued fields of the struct pointed to by req with
// the "default" value from their discord tag.
func setDefaults(req interface{}) error {
	v := reflect.ValueOf(req)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("setDefaults: req is not a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() || !fieldVal.IsZero() {
			continue
		}
		tag := field.Tag.Get("discord")
		if tag == "" {
			continue
		}
		_, tags := parseDiscordTag(tag)
		if def, ok := tags["default"]; ok && def != "" {
			converted, err := convertType(def, field.Type)
			if err != nil {
				return err
			}
			fieldVal.Set(converted)
		}
	}

	return nil
}

// convertType converts a string value to a reflect.Value of type t for basic types.
func convertType(val string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(val).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil
	default:
		return reflect.Value{}, fmt.Errorf("unsupported type for default conversion: %s", t.Kind())
	}
}

// structToCommandOptions uses reflection to generate Discord command options from a request struct.
func structToCommandOptions(req Request) ([]*discordgo.ApplicationCommandOption, error) {
	t := reflect.TypeOf(req)
	if t == nil {
		return nil, fmt.Errorf("request is nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("request is not a struct")
	}

	var options []*discordgo.ApplicationCommandOption
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		optionName := strings.ToLower(field.Name)

		var optionType discordgo.ApplicationCommandOptionType
		switch field.Type.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			optionType = discordgo.ApplicationCommandOptionInteger
		case reflect.Float32, reflect.Float64:
			optionType = discordgo.ApplicationCommandOptionNumber
		case reflect.Bool:
			optionType = discordgo.ApplicationCommandOptionBoolean
		default:
			optionType = discordgo.ApplicationCommandOptionString
		}

		required := true
		description := "Auto-generated option for " + optionName
		var choices []*discordgo.ApplicationCommandOptionChoice

		if tagValue := field.Tag.Get("discord"); tagValue != "" {
			name, tags := parseDiscordTag(tagValue)
			if name != "" {
				optionName = name
			}
			if _, ok := tags["optional"]; ok {
				required = false
			}
			if desc, ok := tags["description"]; ok && desc != "" {
				description = desc
			}
			if choicesStr, ok := tags["choices"]; ok && choicesStr != "" {
				choices = parseChoices(choicesStr)
			}
		}

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        optionType,
			Name:        optionName,
			Description: description,
			Required:    required,
			Choices:     choices,
		})
	}

	return options, nil
}

// applicationCommand builds the slash command definition for fn.
func applicationCommand(fn BotFunctionI) (*discordgo.ApplicationCommand, error) {
	options, err := structToCommandOptions(fn.GetRequestPrototype())
	if err != nil {
		return nil, err
	}
	return &discordgo.ApplicationCommand{
		Name:                     fn.GetName(),
		Description:              fn.GetDescription(),
		Options:                  options,
		DefaultMemberPermissions: fn.GetDefaultMemberPermissions(),
	}, nil
}
