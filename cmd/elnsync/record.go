package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/model"
)

// addRecordFlags registers the flags readRecord understands.
func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "read the record as JSON from a file (- for stdin)")
	cmd.Flags().String("name", "", "record name")
	cmd.Flags().String("code", "", "record code")
	cmd.Flags().String("folder-id", "", "pre-existing notebook folder (programs)")
	cmd.Flags().String("assay-type", "", "assay type schema name (assays)")
	cmd.Flags().StringArray("parent", nil, "parent as kind:id[:name], nearest first")
	cmd.Flags().StringArray("field", nil, "custom field as key=value; value is parsed as JSON when it can be")
	cmd.Flags().String("owner", "", "owner as username:email")
	cmd.Flags().StringArray("member", nil, "team member as username:email")
}

// readRecord builds a record from --file, or from the <kind> <id> arguments
// and the record flags.
func readRecord(cmd *cobra.Command, args []string) (*model.Record, error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		return readRecordFile(cmd.InOrStdin(), path)
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("expected <kind> <id> or --file")
	}
	kind, ok := model.ParseRecordKind(args[0])
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", args[0])
	}
	r := &model.Record{Kind: kind, ID: args[1]}
	r.Name, _ = cmd.Flags().GetString("name")
	r.Code, _ = cmd.Flags().GetString("code")
	r.FolderID, _ = cmd.Flags().GetString("folder-id")
	r.AssayType, _ = cmd.Flags().GetString("assay-type")

	parents, _ := cmd.Flags().GetStringArray("parent")
	child := r
	for _, p := range parents {
		parent, err := parseParent(p)
		if err != nil {
			return nil, err
		}
		child.Parent = parent
		child = parent
	}

	fields, _ := cmd.Flags().GetStringArray("field")
	if len(fields) > 0 {
		fm, err := parseFields(fields)
		if err != nil {
			return nil, err
		}
		r.Fields = fm
	}

	if owner, _ := cmd.Flags().GetString("owner"); owner != "" {
		u := parseUser(owner)
		r.Owner = &u
	}
	members, _ := cmd.Flags().GetStringArray("member")
	for _, m := range members {
		r.Members = append(r.Members, parseUser(m))
	}
	return r, nil
}

func readRecordFile(stdin io.Reader, path string) (*model.Record, error) {
	var in io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}
	var r model.Record
	if err := json.NewDecoder(in).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &r, nil
}

// parseParent parses "kind:id" or "kind:id:name".
func parseParent(s string) (*model.Record, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return nil, fmt.Errorf("invalid parent %q (want kind:id[:name])", s)
	}
	kind, ok := model.ParseRecordKind(parts[0])
	if !ok {
		return nil, fmt.Errorf("invalid parent %q: unknown kind %q", s, parts[0])
	}
	p := &model.Record{Kind: kind, ID: strings.TrimSpace(parts[1])}
	if len(parts) == 3 {
		p.Name = parts[2]
	}
	return p, nil
}

// parseFields parses key=value pairs. Values that decode as a JSON scalar
// keep their type; anything else is a string.
func parseFields(pairs []string) (model.FieldMap, error) {
	fm := make(model.FieldMap, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q (want key=value)", pair)
		}
		var v model.Value
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = model.String(raw)
		}
		fm[key] = v
	}
	return fm, nil
}

// parseUser parses "username:email" or a bare username.
func parseUser(s string) model.User {
	username, email, _ := strings.Cut(s, ":")
	return model.User{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email)}
}

func parseKindID(args []string) (model.RecordKind, string, error) {
	kind, ok := model.ParseRecordKind(args[0])
	if !ok {
		return "", "", fmt.Errorf("unknown record kind %q", args[0])
	}
	return kind, args[1], nil
}
