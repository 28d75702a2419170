package importer

import (
	"os"
	"text/template"

	"github.com/pkg/errors"
)

type modelData struct {
	Name     string
	Material string
	Texture  string
	Size     string
	Height   float64
}

type slideInclude struct {
	Name string
	Pose string
}

type worldData struct {
	Camera string
	Plugin string
	Slides []slideInclude
}

var templates = template.Must(template.New("importer").Parse(`
{{- define "model.config" -}}
<?xml version='1.0'?>
<model>
  <name>{{.Name}}</name>
  <version>1.0</version>
  <sdf version='1.6'>model.sdf</sdf>
  <description>Slide {{.Name}}</description>
</model>
{{end}}

{{- define "model.sdf" -}}
<?xml version='1.0' ?>
<sdf version='1.6'>
  <model name='{{.Name}}'>
    <static>true</static>
    <link name='link'>
      <pose>0 0 {{.Height}} 0 0 0</pose>
      <collision name='collision'>
        <geometry>
          <box>
            <size>{{.Size}}</size>
          </box>
        </geometry>
      </collision>
      <visual name='visual'>
        <geometry>
          <box>
            <size>{{.Size}}</size>
          </box>
        </geometry>
        <material>
          <script>
            <uri>model://{{.Name}}/materials/scripts</uri>
            <uri>model://{{.Name}}/materials/textures</uri>
            <name>{{.Material}}</name>
          </script>
        </material>
      </visual>
    </link>
  </model>
</sdf>
{{end}}

{{- define "script.material" -}}
material {{.Material}}
{
  receive_shadows off
  technique
  {
    pass
    {
      texture_unit
      {
        texture {{.Texture}}
        filtering anisotropic
        max_anisotropy 16
      }
    }
  }
}
{{end}}

{{- define "world" -}}
<?xml version='1.0' ?>
<sdf version='1.6'>
  <world name='default'>
    <gui>
      <camera name='user_camera'>
        <pose>{{.Camera}}</pose>
      </camera>
{{.Plugin}}
      <plugin name='keyboard' filename='libKeyboardGUIPlugin.so'/>
    </gui>
    <include>
      <uri>model://sun</uri>
    </include>
    <include>
      <uri>model://ground_plane</uri>
    </include>
{{- range .Slides}}
    <include>
      <name>{{.Name}}</name>
      <pose>{{.Pose}}</pose>
      <uri>model://{{.Name}}</uri>
    </include>
{{- end}}
  </world>
</sdf>
{{end}}
`))

func render(path, name string, data interface{}) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return errors.Wrapf(templates.ExecuteTemplate(f, name, data), "failed to write %s", path)
}
