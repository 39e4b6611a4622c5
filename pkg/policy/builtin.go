package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		requiredWithDefaultPolicy(),
		missingDescriptionPolicy(),
		secretNamingPolicy(),
		profileOnlySecretPolicy(),
	}
}

// requiredWithDefaultPolicy flags required secrets that also carry a
// default. Such a secret is never reported missing.
func requiredWithDefaultPolicy() Policy {
	return Policy{
		Name:        "required-with-default",
		Description: "Flags required secrets that declare a default value",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"semantics"},
		Rego: `package secretspec.lint.required_with_default

deny contains violation if {
	some profile, secrets in input.effective
	some name, secret in secrets
	secret.required
	secret.has_default
	violation := {
		"message": sprintf("%s is required but has a default, so it is never missing", [name]),
		"secret": name,
		"profile": profile,
	}
}
`,
	}
}

// missingDescriptionPolicy flags secrets without a description.
func missingDescriptionPolicy() Policy {
	return Policy{
		Name:        "missing-description",
		Description: "Flags secrets that have no description in any profile",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"documentation"},
		Rego: `package secretspec.lint.missing_description

deny contains violation if {
	some signature in input.signatures
	trim_space(object.get(signature, "description", "")) == ""
	violation := {
		"message": sprintf("%s has no description", [signature.name]),
		"secret": signature.name,
	}
}
`,
	}
}

// secretNamingPolicy enforces upper snake case secret names.
func secretNamingPolicy() Policy {
	return Policy{
		Name:        "secret-naming",
		Description: "Secret names must be upper case letters, digits and underscores",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		Rego: `package secretspec.lint.secret_naming

deny contains violation if {
	some signature in input.signatures
	not regex.match("^[A-Z][A-Z0-9_]*$", signature.name)
	violation := {
		"message": sprintf("%s should be upper snake case", [signature.name]),
		"secret": signature.name,
	}
}
`,
	}
}

// profileOnlySecretPolicy reports secrets that exist in a named profile but
// not in the default profile.
func profileOnlySecretPolicy() Policy {
	return Policy{
		Name:        "profile-only-secret",
		Description: "Reports secrets declared only outside the default profile",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"profiles"},
		Rego: `package secretspec.lint.profile_only_secret

deny contains violation if {
	defaults := input.effective["default"]
	some profile, secrets in input.effective
	profile != "default"
	some name, _ in secrets
	not defaults[name]
	violation := {
		"message": sprintf("%s is only declared in profile %s", [name, profile]),
		"secret": name,
		"profile": profile,
	}
}
`,
	}
}
