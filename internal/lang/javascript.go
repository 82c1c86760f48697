package lang

func init() {
	Register(&LanguageSpec{
		Language:       JavaScript,
		FileExtensions: []string{".js", ".mjs", ".cjs"},

		ProgramNodeTypes:    []string{"program"},
		StatementNodeTypes:  []string{"expression_statement"},
		SequenceNodeTypes:   []string{"sequence_expression"},
		CallNodeTypes:       []string{"call_expression"},
		IdentifierNodeTypes: []string{"identifier"},
		StringNodeTypes:     []string{"string"},
		StringFragmentTypes: []string{"string_fragment"},
		EscapeSequenceTypes: []string{"escape_sequence"},
		ArrayNodeTypes:      []string{"array"},
		// "function" is the pre-0.21 grammar name for function_expression.
		FunctionNodeTypes: []string{"function_expression", "function"},
		CommentNodeTypes:  []string{"comment", "html_comment"},

		AssignmentPatternTypes: []string{"assignment_pattern"},
		RestPatternTypes:       []string{"rest_pattern"},
	})
}
