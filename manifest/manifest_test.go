package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piston-launch/pistonmeta/rules"
	"github.com/piston-launch/pistonmeta/version"
)

var linux = rules.Environment{OS: rules.OSInfo{Name: "linux", Arch: "x64", Version: "6.1.0"}}

const sampleManifest = `{
  "id": "1.20.1",
  "type": "release",
  "releaseTime": "2023-06-12T13:25:51+00:00",
  "time": "2023-06-12T13:25:51+0000",
  "mainClass": "net.minecraft.client.main.Main",
  "assets": "5",
  "arguments": {
    "game": [
      "--username",
      {"rules": [{"action": "allow", "features": {"is_demo_user": true}}], "value": "--demo"},
      {"rules": [{"action": "allow", "features": {"has_custom_resolution": true}}], "value": ["--width", "${resolution_width}"]}
    ],
    "jvm": ["-Xss1M"]
  },
  "libraries": [
    {
      "name": "org.lwjgl:lwjgl:3.3.1",
      "downloads": {"artifact": {"path": "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar", "sha1": "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed", "size": 724243, "url": "https://libraries.minecraft.net/org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar"}}
    },
    {
      "name": "org.lwjgl:lwjgl-glfw:3.3.1:natives-macos",
      "rules": [{"action": "allow", "os": {"name": "osx"}}]
    }
  ],
  "downloads": {
    "client": {"sha1": "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed", "size": 24559872, "url": "https://piston-data.example/client.jar"}
  },
  "javaVersion": {"component": "java-runtime-gamma", "majorVersion": 17}
}`

func TestManifestJSON(t *testing.T) {
	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(sampleManifest), &m))

	assert.Equal(t, version.Parse("1.20.1"), m.ID)
	assert.Equal(t, version.TypeRelease, m.Type)
	assert.True(t, m.Resolved())
	assert.Equal(t, "net.minecraft.client.main.Main", m.MainClass)
	assert.Equal(t, 17, m.JavaVersion.MajorVersion)

	game := m.Arguments[ArgumentGame]
	require.Len(t, game, 3)
	assert.Equal(t, []string{"--username"}, game[0].Values)
	assert.Equal(t, []string{"--demo"}, game[1].Values)
	assert.Nil(t, game[1].Resolve(linux), "demo argument must not apply without the feature")
	assert.Equal(t, []string{"--width", "${resolution_width}"}, game[2].Values)

	info, ok := m.DownloadFor(DownloadClient)
	require.True(t, ok)
	assert.Equal(t, int64(24559872), info.Size)

	// round-trip keeps the identifier and the argument union shape
	out, err := json.Marshal(&m)
	require.NoError(t, err)
	var again Manifest
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, m.Arguments[ArgumentGame][2].Values, again.Arguments[ArgumentGame][2].Values)
}

func TestJarID(t *testing.T) {
	m := &Manifest{ID: version.Parse("1.20.1")}
	assert.Equal(t, "1.20.1", m.JarID().String())

	m.Jar = version.Parse("1.20")
	assert.Equal(t, "1.20", m.JarID().String())
}

func TestArtifact(t *testing.T) {
	a, err := ParseArtifact("org.lwjgl:lwjgl:3.3.1")
	require.NoError(t, err)
	assert.Equal(t, "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1.jar", a.Path())
	assert.Equal(t, "org.lwjgl:lwjgl:3.3.1", a.String())

	natives := a.WithClassifier("natives-linux")
	assert.Equal(t, "org/lwjgl/lwjgl/3.3.1/lwjgl-3.3.1-natives-linux.jar", natives.Path())
	assert.Equal(t, "org.lwjgl:lwjgl:3.3.1:natives-linux", natives.String())

	_, err = ParseArtifact("not-a-coordinate")
	assert.Error(t, err)
}

func TestNativeClassifier(t *testing.T) {
	lib := Library{
		Name:    Artifact{Group: "org.lwjgl", Name: "lwjgl", Version: "2.9.0"},
		Natives: map[string]string{"linux": "natives-linux-${arch}", "windows": "natives-windows"},
	}

	classifier, ok := lib.NativeClassifier(rules.OSInfo{Name: "linux", Arch: "x64"})
	require.True(t, ok)
	assert.Equal(t, "natives-linux-64", classifier)

	classifier, ok = lib.NativeClassifier(rules.OSInfo{Name: "linux", Arch: "x86"})
	require.True(t, ok)
	assert.Equal(t, "natives-linux-32", classifier)

	_, ok = lib.NativeClassifier(rules.OSInfo{Name: "osx"})
	assert.False(t, ok)
}

func TestRequiredFiles(t *testing.T) {
	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(sampleManifest), &m))

	files := m.RequiredFiles(linux)
	require.Len(t, files, 1, "the osx-only native library must not contribute on linux")
	assert.Contains(t, files[0], "lwjgl-3.3.1.jar")
}

func TestExtractRules(t *testing.T) {
	var e *ExtractRules
	assert.True(t, e.ShouldExtract("META-INF/MANIFEST.MF"), "nil exclusion list extracts everything")

	e = &ExtractRules{Exclude: []string{"META-INF/"}}
	assert.False(t, e.ShouldExtract("META-INF/MANIFEST.MF"))
	assert.True(t, e.ShouldExtract("liblwjgl.so"))
}

func TestUniqueObjects(t *testing.T) {
	hash := version.SHA1Of([]byte("same bytes"))
	other := version.SHA1Of([]byte("different"))
	idx := AssetIndex{Objects: map[string]AssetObject{
		"icons/icon_16x16.png": {Hash: hash, Size: 10},
		"icons/icon_32x32.png": {Hash: hash, Size: 10},
		"sounds/click.ogg":     {Hash: other, Size: 20},
	}}

	unique := idx.UniqueObjects()
	require.Len(t, unique, 2)
	assert.Equal(t, "icons/icon_16x16.png", unique[hash], "representative name is deterministic")
	assert.Equal(t, "sounds/click.ogg", unique[other])
}

func TestMerge(t *testing.T) {
	parent := &Manifest{
		ID:        version.Parse("1.20.1"),
		Type:      version.TypeRelease,
		MainClass: "net.minecraft.client.main.Main",
		Assets:    "5",
		Libraries: []Library{{Name: Artifact{Group: "g", Name: "parent-lib", Version: "1"}}},
		Arguments: map[ArgumentKind][]Argument{
			ArgumentGame: {{Values: []string{"--parentArg"}}},
		},
		CompatibilityRules: []rules.Rule{{Action: rules.Allow}},
		JavaVersion:        &JavaVersion{Component: "java-runtime-gamma", MajorVersion: 17},
	}
	child := &Manifest{
		ID:           version.Parse("1.20.1-forge-47.2.0"),
		Type:         version.TypeRelease,
		InheritsFrom: version.Parse("1.20.1"),
		Libraries:    []Library{{Name: Artifact{Group: "g", Name: "child-lib", Version: "2"}}},
		Arguments: map[ArgumentKind][]Argument{
			ArgumentGame: {{Values: []string{"--childArg"}}},
			ArgumentJVM:  {{Values: []string{"-Dchild"}}},
		},
		CompatibilityRules: []rules.Rule{{Action: rules.Disallow}},
	}

	merged := Merge(parent, child)

	assert.True(t, merged.Resolved())
	assert.Equal(t, child.ID, merged.ID)
	assert.Equal(t, "net.minecraft.client.main.Main", merged.MainClass, "absent child main class inherits the parent's")
	assert.Equal(t, "5", merged.Assets)
	assert.Equal(t, 17, merged.JavaVersion.MajorVersion)

	require.Len(t, merged.Libraries, 2)
	assert.Equal(t, "child-lib", merged.Libraries[0].Name.Name, "child libraries precede inherited ones")
	assert.Equal(t, "parent-lib", merged.Libraries[1].Name.Name)

	game := merged.Arguments[ArgumentGame]
	require.Len(t, game, 2)
	assert.Equal(t, []string{"--parentArg"}, game[0].Values, "child arguments append after the parent's")
	assert.Equal(t, []string{"--childArg"}, game[1].Values)
	assert.Equal(t, []string{"-Dchild"}, merged.Arguments[ArgumentJVM][0].Values)

	require.Len(t, merged.CompatibilityRules, 2)
	assert.Equal(t, rules.Allow, merged.CompatibilityRules[0].Action)
	assert.Equal(t, rules.Disallow, merged.CompatibilityRules[1].Action)

	// the parent is untouched
	assert.Len(t, parent.Libraries, 1)
	assert.Len(t, parent.Arguments[ArgumentGame], 1)
}

func TestMergeSparseOverride(t *testing.T) {
	parent := &Manifest{ID: version.Parse("1.20.1"), MainClass: "parent.Main", Assets: "5"}
	child := &Manifest{
		ID:           version.Parse("custom"),
		InheritsFrom: version.Parse("1.20.1"),
		MainClass:    "child.Main",
		Jar:          version.Parse("1.20.1"),
	}

	merged := Merge(parent, child)
	assert.Equal(t, "child.Main", merged.MainClass)
	assert.Equal(t, "5", merged.Assets, "absent child assets inherit the parent's")
	assert.Equal(t, "1.20.1", merged.JarID().String())
}

func TestClasspath(t *testing.T) {
	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(sampleManifest), &m))

	cp := m.Classpath("/game", linux)
	require.Len(t, cp, 2)
	assert.Contains(t, cp[0], "lwjgl-3.3.1.jar")
	assert.Contains(t, cp[1], "1.20.1.jar")
}
