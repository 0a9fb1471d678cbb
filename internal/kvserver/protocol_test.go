package kvserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ParseRequest_Parses_Read_And_Delete(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{cmdRead, cmdDelete} {
		req, err := parseRequest([]byte(cmd + " mykey"))
		require.NoError(t, err)
		require.Equal(t, cmd, req.cmd)
		require.Equal(t, []byte("mykey"), req.key)
	}
}

func Test_ParseRequest_Parses_Write_With_Key_And_Value(t *testing.T) {
	t.Parallel()

	req, err := parseRequest([]byte("write mykey|myvalue"))
	require.NoError(t, err)
	require.Equal(t, cmdWrite, req.cmd)
	require.Equal(t, []byte("mykey"), req.key)
	require.Equal(t, []byte("myvalue"), req.value)
}

func Test_ParseRequest_Write_Value_May_Contain_Pipes(t *testing.T) {
	t.Parallel()

	req, err := parseRequest([]byte("write k|a|b|c"))
	require.NoError(t, err)
	require.Equal(t, []byte("a|b|c"), req.value)
}

func Test_ParseRequest_Parses_Status_And_Keys_Without_Arguments(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{cmdStatus, cmdKeys} {
		req, err := parseRequest([]byte(cmd))
		require.NoError(t, err)
		require.Equal(t, cmd, req.cmd)
		require.Empty(t, req.key)
	}
}

func Test_ParseRequest_Rejects_Read_Without_Key(t *testing.T) {
	t.Parallel()

	_, err := parseRequest([]byte("read"))
	require.Error(t, err)
}

func Test_ParseRequest_Rejects_Write_Without_Pipe(t *testing.T) {
	t.Parallel()

	_, err := parseRequest([]byte("write justakey"))
	require.Error(t, err)
}

func Test_ParseRequest_Rejects_Unknown_Command(t *testing.T) {
	t.Parallel()

	_, err := parseRequest([]byte("frobnicate k"))
	require.Error(t, err)
}
