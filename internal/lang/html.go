package lang

func init() {
	Register(&LanguageSpec{
		Language:         HTML,
		FileExtensions:   []string{".html", ".htm"},
		ProgramNodeTypes: []string{"document"},
		CommentNodeTypes: []string{"comment"},

		ScriptElementTypes:  []string{"script_element"},
		StartTagTypes:       []string{"start_tag"},
		AttributeTypes:      []string{"attribute"},
		AttributeNameTypes:  []string{"attribute_name"},
		AttributeValueTypes: []string{"attribute_value"},
		QuotedValueTypes:    []string{"quoted_attribute_value"},
	})
}
