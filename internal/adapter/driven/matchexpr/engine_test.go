package matchexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

func testTarget() model.Target {
	return model.Target{
		ConnectURL: "service:jmx:rmi:///jndi/rmi://cryostat:9091/jmxrmi",
		Alias:      "cryostat",
		Labels:     map[string]string{"env": "prod"},
		Annotations: map[string]string{
			"discovered-by": "file",
		},
	}
}

func TestEngine_Validate(t *testing.T) {
	engine := NewEngine()

	for _, expression := range []string{
		"true",
		`target.alias == "cryostat"`,
		`target.connectUrl contains "jmxrmi"`,
		`target.labels["env"] == "prod"`,
	} {
		assert.NoError(t, engine.Validate(expression), "expression %q", expression)
	}
}

func TestEngine_Validate_RejectsMalformed(t *testing.T) {
	engine := NewEngine()

	for _, expression := range []string{
		"",
		"target.alias ==",
		"((",
		`1 + 2`, // well-formed but not boolean
	} {
		err := engine.Validate(expression)
		assert.ErrorIs(t, err, driven.ErrInvalidExpression, "expression %q", expression)
	}
}

func TestEngine_Applies(t *testing.T) {
	engine := NewEngine()
	target := testTarget()

	cases := []struct {
		expression string
		want       bool
	}{
		{"true", true},
		{"false", false},
		{`target.alias == "cryostat"`, true},
		{`target.alias == "other"`, false},
		{`target.connectUrl == "service:jmx:rmi:///jndi/rmi://cryostat:9091/jmxrmi"`, true},
		{`target.labels["env"] == "prod"`, true},
		{`target.annotations["discovered-by"] == "file"`, true},
	}

	for _, tc := range cases {
		got, err := engine.Applies(tc.expression, target)
		require.NoError(t, err, "expression %q", tc.expression)
		assert.Equal(t, tc.want, got, "expression %q", tc.expression)
	}
}

func TestEngine_Applies_NilMapsAreSafe(t *testing.T) {
	engine := NewEngine()
	bare := model.Target{ConnectURL: "service:jmx:rmi:///jndi/rmi://bare:9091/jmxrmi"}

	got, err := engine.Applies(`target.labels["env"] == "prod"`, bare)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEngine_Applies_BrokenExpressionIsEvaluationError(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Applies("target.alias ==", testTarget())
	assert.ErrorIs(t, err, driven.ErrEvaluation)
}
