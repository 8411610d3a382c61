package config

import (
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// parseHCL decodes an HCL configuration file such as:
//
//	aws {
//	  region  = "us-west-2"
//	  profile = "games"
//	}
//
//	game_server {
//	  host = "10.0.0.5"
//	}
func parseHCL(path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)

	if diags.HasErrors() {
		return nil, NewConfigError(ErrInvalidFile, "", "failed to parse HCL file "+path, diags)
	}

	if file == nil || file.Body == nil {
		return nil, NewConfigError(ErrInvalidFile, "", "parsed HCL file is empty or invalid: "+path, nil)
	}

	cfg := &Config{}
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, NewConfigError(ErrInvalidFile, "", "failed to decode HCL body "+path, diags)
	}

	return cfg, nil
}
